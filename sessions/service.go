// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/ingestion"
	"github.com/poiesic/sessionrag/storage"
)

// Update carries optional session changes. Nil fields are left untouched.
type Update struct {
	Name        *string
	Description *string
}

// Service coordinates sessions and the documents saved into them.
type Service struct {
	sessionRepository  storage.SessionRepository
	documentRepository storage.DocumentRepository
	pipeline           *ingestion.Pipeline
	logger             *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a session service.
func NewService(
	sessionRepository storage.SessionRepository,
	documentRepository storage.DocumentRepository,
	pipeline *ingestion.Pipeline,
	opts ...Option,
) (*Service, error) {
	if sessionRepository == nil {
		return nil, ErrSessionRepositoryRequired
	}
	if documentRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}

	s := &Service{
		sessionRepository:  sessionRepository,
		documentRepository: documentRepository,
		pipeline:           pipeline,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "sessions")
	return s, nil
}

// CreateSession stores a new session with a random UUID.
func (s *Service) CreateSession(ctx context.Context, name, description string) (*core.Session, error) {
	session := &core.Session{
		Id:          core.SessionID(uuid.NewString()),
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	if err := core.ValidateSession(session); err != nil {
		return nil, err
	}

	created, err := s.sessionRepository.AddSession(ctx, session)
	if err != nil {
		return nil, err
	}
	s.logger.Info("created session", "session", created.Id, "name", created.Name)
	return created, nil
}

// GetSession returns the session with the given id.
func (s *Service) GetSession(ctx context.Context, id core.SessionID) (*core.Session, error) {
	session, err := s.sessionRepository.GetSession(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err, id)
	}
	return session, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *Service) ListSessions(ctx context.Context) ([]*core.Session, error) {
	return s.sessionRepository.ListSessions(ctx)
}

// UpdateSession applies the non-nil fields of update.
func (s *Service) UpdateSession(ctx context.Context, id core.SessionID, update Update) (*core.Session, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		session.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		session.Description = *update.Description
	}
	if err := core.ValidateSession(session); err != nil {
		return nil, err
	}

	updated, err := s.sessionRepository.UpdateSession(ctx, session)
	if err != nil {
		return nil, s.mapNotFound(err, id)
	}
	return updated, nil
}

// DeleteSession removes a session and all of its documents.
func (s *Service) DeleteSession(ctx context.Context, id core.SessionID) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}

	removed, err := s.deleteSessionDocuments(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessionRepository.DeleteSessions(ctx, id); err != nil {
		return s.mapNotFound(err, id)
	}
	s.logger.Info("deleted session", "session", id, "documents", removed)
	return nil
}

// DeleteAllSessions removes every session and its documents.
// Returns the number of sessions deleted.
func (s *Service) DeleteAllSessions(ctx context.Context) (int, error) {
	sessions, err := s.sessionRepository.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, session := range sessions {
		if err := s.DeleteSession(ctx, session.Id); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// AddConversation saves text as a new document of the session.
func (s *Service) AddConversation(ctx context.Context, id core.SessionID, text string, metadata map[string]string) (*core.Document, error) {
	doc, err := s.pipeline.SaveConversation(ctx, id, text, metadata)
	if err != nil {
		if errors.Is(err, ingestion.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return doc, nil
}

// GetConversation returns a document only if it belongs to the session.
func (s *Service) GetConversation(ctx context.Context, id core.SessionID, conversationID core.ID) (*core.Document, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}

	doc, err := s.documentRepository.GetDocument(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrConversationNotFound, conversationID)
		}
		return nil, err
	}
	if doc.SessionId != id {
		return nil, fmt.Errorf("%w: %d", ErrConversationNotFound, conversationID)
	}
	return doc, nil
}

// DeleteConversation removes a document of the session. A document that
// belongs to another session is reported as not found and left in place.
func (s *Service) DeleteConversation(ctx context.Context, id core.SessionID, conversationID core.ID) error {
	if _, err := s.GetConversation(ctx, id, conversationID); err != nil {
		return err
	}

	if err := s.documentRepository.DeleteByIDs(ctx, conversationID); err != nil {
		s.logger.Error("error deleting conversation", "session", id, "id", conversationID, "err", err)
		return err
	}
	s.logger.Debug("deleted conversation", "session", id, "id", conversationID)
	return nil
}

// ListConversations returns the documents of a session in insertion order.
func (s *Service) ListConversations(ctx context.Context, id core.SessionID) ([]*core.Document, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.documentRepository.GetSessionDocuments(ctx, id)
}

func (s *Service) deleteSessionDocuments(ctx context.Context, id core.SessionID) (int, error) {
	docs, err := s.documentRepository.GetSessionDocuments(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	ids := make([]core.ID, len(docs))
	for i, doc := range docs {
		ids[i] = doc.Id
	}
	if err := s.documentRepository.DeleteByIDs(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Service) mapNotFound(err error, id core.SessionID) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return err
}
