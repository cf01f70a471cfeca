package api

import (
	"time"

	"github.com/poiesic/sessionrag/core"
)

type saveSessionRequest struct {
	SessionName        string `json:"session_name"`
	SessionDescription string `json:"session_description"`
}

type saveConversationRequest struct {
	ConvText  string            `json:"conv_text"`
	SessionID string            `json:"session_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type retrieveRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	TopK      int    `json:"top_k"`
}

type createSessionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateSessionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addConversationRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type sessionResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type documentResponse struct {
	ID        uint64            `json:"id"`
	SessionID string            `json:"session_id"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type scoredDocumentResponse struct {
	documentResponse
	Score  float64 `json:"score"`
	Dense  float64 `json:"dense"`
	Sparse float64 `json:"sparse"`
}

type retrieveResponse struct {
	Documents []scoredDocumentResponse `json:"documents"`
}

type deleteAllResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

func toSessionResponse(s *core.Session) sessionResponse {
	return sessionResponse{
		ID:          s.Id.String(),
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toSessionResponses(list []*core.Session) []sessionResponse {
	out := make([]sessionResponse, len(list))
	for i, s := range list {
		out[i] = toSessionResponse(s)
	}
	return out
}

func toDocumentResponse(d *core.Document) documentResponse {
	return documentResponse{
		ID:        uint64(d.Id),
		SessionID: d.SessionId.String(),
		Text:      d.Text,
		CreatedAt: d.CreatedAt,
		Metadata:  d.Metadata,
	}
}

func toDocumentResponses(list []*core.Document) []documentResponse {
	out := make([]documentResponse, len(list))
	for i, d := range list {
		out[i] = toDocumentResponse(d)
	}
	return out
}

func toRetrieveResponse(results []core.ScoredDocument) retrieveResponse {
	docs := make([]scoredDocumentResponse, len(results))
	for i, r := range results {
		docs[i] = scoredDocumentResponse{
			documentResponse: toDocumentResponse(r.Document),
			Score:            r.Score,
			Dense:            r.Dense,
			Sparse:           r.Sparse,
		}
	}
	return retrieveResponse{Documents: docs}
}
