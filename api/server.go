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


// Package api exposes sessions, conversation saving, retrieval and answer
// streaming over HTTP.
//
// All routes live under /api. Errors are returned as {"error": "..."} with a
// status derived from the domain error: validation failures are 400, unknown
// sessions and conversations are 404, an unreachable embedding service is 503
// and everything else is 500.
package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/poiesic/sessionrag/rag"
	"github.com/poiesic/sessionrag/retrieval"
	"github.com/poiesic/sessionrag/sessions"
)

const defaultBodyLimit = 4 * 1024 * 1024

// Server is the HTTP surface of the application.
type Server struct {
	app      *fiber.App
	sessions *sessions.Service
	engine   *retrieval.Engine
	answerer *rag.Answerer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	bodyLimit int
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBodyLimit sets the maximum request body size in bytes.
// Default is 4MB.
func WithBodyLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.bodyLimit = limit
		}
	}
}

// New creates a server and registers its routes.
func New(svc *sessions.Service, engine *retrieval.Engine, answerer *rag.Answerer, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, ErrSessionsRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if answerer == nil {
		return nil, ErrAnswererRequired
	}

	o := &options{bodyLimit: defaultBodyLimit}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "api")

	app := fiber.New(fiber.Config{
		AppName:               "sessionrag",
		BodyLimit:             o.bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	app.Use(recover.New())

	s := &Server{
		app:      app,
		sessions: svc,
		engine:   engine,
		answerer: answerer,
		logger:   logger,
	}
	s.registerRoutes()
	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	r := api.Group("/rag")
	r.Post("/save_session", s.saveSession)
	r.Post("/save_conversation", s.saveConversation)
	r.Post("/initial_query", s.initialQuery)
	r.Post("/retrieve", s.retrieve)
	r.Get("/sessions", s.listSessions)
	r.Delete("/sessions", s.deleteAllSessions)

	h := api.Group("/sessions")
	h.Post("", s.createSession)
	h.Get("", s.listSessions)
	h.Delete("", s.deleteAllSessions)
	h.Get("/:id", s.getSession)
	h.Put("/:id", s.updateSession)
	h.Delete("/:id", s.deleteSession)
	h.Get("/:id/conversations", s.listConversations)
	h.Post("/:id/conversations", s.addConversation)
	h.Get("/:id/conversations/:cid", s.getConversation)
	h.Delete("/:id/conversations/:cid", s.deleteConversation)
}
