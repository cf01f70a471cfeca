package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/sessions"
)

func (s *Server) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.sessions.CreateSession(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	list, err := s.sessions.ListSessions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toSessionResponses(list))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	session, err := s.sessions.GetSession(c.UserContext(), sessionParam(c))
	if err != nil {
		return err
	}
	return c.JSON(toSessionResponse(session))
}

func (s *Server) updateSession(c *fiber.Ctx) error {
	var req updateSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.sessions.UpdateSession(c.UserContext(), sessionParam(c), sessions.Update{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(toSessionResponse(session))
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.sessions.DeleteSession(c.UserContext(), sessionParam(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteAllSessions(c *fiber.Ctx) error {
	count, err := s.sessions.DeleteAllSessions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(deleteAllResponse{
		Message: fmt.Sprintf("Deleted %d session(s)", count),
		Deleted: count,
	})
}

func (s *Server) addConversation(c *fiber.Ctx) error {
	var req addConversationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	doc, err := s.sessions.AddConversation(c.UserContext(), sessionParam(c), req.Text, req.Metadata)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toDocumentResponse(doc))
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	docs, err := s.sessions.ListConversations(c.UserContext(), sessionParam(c))
	if err != nil {
		return err
	}
	return c.JSON(toDocumentResponses(docs))
}

func (s *Server) getConversation(c *fiber.Ctx) error {
	id, err := conversationParam(c)
	if err != nil {
		return err
	}

	doc, err := s.sessions.GetConversation(c.UserContext(), sessionParam(c), id)
	if err != nil {
		return err
	}
	return c.JSON(toDocumentResponse(doc))
}

func (s *Server) deleteConversation(c *fiber.Ctx) error {
	id, err := conversationParam(c)
	if err != nil {
		return err
	}

	if err := s.sessions.DeleteConversation(c.UserContext(), sessionParam(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func conversationParam(c *fiber.Ctx) (core.ID, error) {
	id, err := strconv.ParseUint(c.Params("cid"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: conversation id must be numeric", ErrBadRequest)
	}
	return core.ID(id), nil
}

func sessionParam(c *fiber.Ctx) core.SessionID {
	return core.SessionID(utils.CopyString(c.Params("id")))
}
