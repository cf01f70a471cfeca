package api

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/poiesic/sessionrag/core"
)

func (s *Server) saveSession(c *fiber.Ctx) error {
	var req saveSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.sessions.CreateSession(c.UserContext(), req.SessionName, req.SessionDescription)
	if err != nil {
		return err
	}
	return c.JSON(toSessionResponse(session))
}

func (s *Server) saveConversation(c *fiber.Ctx) error {
	var req saveConversationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	doc, err := s.sessions.AddConversation(c.UserContext(), core.SessionID(req.SessionID), req.ConvText, req.Metadata)
	if err != nil {
		return err
	}
	return c.JSON(toDocumentResponse(doc))
}

func (s *Server) retrieve(c *fiber.Ctx) error {
	var req retrieveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := core.ValidateSessionID(core.SessionID(req.SessionID)); err != nil {
		return err
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.engine.DefaultTopK()
	}
	if topK < 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrBadRequest)
	}

	results, err := s.engine.RetrieveDocuments(c.UserContext(), req.Query, core.SessionID(req.SessionID), topK)
	if err != nil {
		return err
	}
	return c.JSON(toRetrieveResponse(results))
}

// initialQuery streams the answer as server-sent events. Context is retrieved
// before the response starts, so retrieval errors get a regular status code.
// Each chunk is a data event; the stream ends with a "done" event, or an
// "error" event if generation fails after the response has started.
func (s *Server) initialQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrBadRequest)
	}
	sessionID := core.SessionID(req.SessionID)
	if err := core.ValidateSessionID(sessionID); err != nil {
		return err
	}

	prompt, err := s.answerer.Prepare(c.UserContext(), req.Query, sessionID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// The request context is recycled once the handler returns
	ctx, cancel := context.WithCancel(context.Background())

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		err := s.answerer.Generate(ctx, prompt, func(chunk string) error {
			writeEvent(w, "", chunk)
			return w.Flush()
		})
		if err != nil {
			s.logger.Error("answer stream failed", "session", sessionID, "err", err)
			writeEvent(w, "error", err.Error())
		} else {
			writeEvent(w, "done", "")
		}
		_ = w.Flush()
	}))
	return nil
}

// writeEvent frames data as one server-sent event. Multi-line data becomes
// several data fields.
func writeEvent(w *bufio.Writer, event, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	w.WriteString("\n")
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
