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


// Package rag answers questions from the conversations saved in a session.
//
// The Answerer retrieves the most relevant documents of the session with the
// hybrid retrieval engine, places their text in a prompt and streams the
// generator's answer to a caller-supplied sink.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/retrieval"
)

// Answerer streams retrieval-augmented answers.
type Answerer struct {
	engine    *retrieval.Engine
	generator ai.Generator
	topK      int
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithTopK sets how many documents are placed in the prompt.
// Default is the engine's default top-K.
func WithTopK(topK int) Option {
	return func(a *Answerer) error {
		if topK < 1 {
			return retrieval.ErrInvalidTopK
		}
		a.topK = topK
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAnswerer creates an answerer over engine and generator.
func NewAnswerer(engine *retrieval.Engine, generator ai.Generator, opts ...Option) (*Answerer, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	a := &Answerer{
		engine:    engine,
		generator: generator,
		topK:      engine.DefaultTopK(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "rag")
	return a, nil
}

// Prompt is the retrieved context for one question, ready for generation.
type Prompt struct {
	SessionID core.SessionID
	Query     string
	Contexts  []string
	Text      string
}

// Prepare validates query and retrieves its context from sessionID.
// Retrieval failures are returned before any generation starts.
//
// A session with no matching documents still yields a prompt, with an empty
// context.
func (a *Answerer) Prepare(ctx context.Context, query string, sessionID core.SessionID) (*Prompt, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	results, err := a.engine.RetrieveDocuments(ctx, query, sessionID, a.topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		a.logger.Debug("no context found", "session", sessionID)
	}

	contexts := retrieval.Texts(results)
	return &Prompt{
		SessionID: sessionID,
		Query:     query,
		Contexts:  contexts,
		Text:      BuildPrompt(query, contexts),
	}, nil
}

// Generate streams the answer for a prepared prompt to sink chunk by chunk.
// An error returned by sink stops the stream and is returned unchanged.
func (a *Answerer) Generate(ctx context.Context, prompt *Prompt, sink func(chunk string) error) error {
	var sinkErr error
	err := a.generator.GenerateStream(ctx, prompt.Text, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if err := sink(chunk); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	if sinkErr != nil {
		return sinkErr
	}
	if err != nil {
		a.logger.Error("error generating answer", "session", prompt.SessionID, "err", err)
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return nil
}

// StreamAnswer is Prepare followed by Generate.
func (a *Answerer) StreamAnswer(ctx context.Context, query string, sessionID core.SessionID, sink func(chunk string) error) error {
	prompt, err := a.Prepare(ctx, query, sessionID)
	if err != nil {
		return err
	}
	return a.Generate(ctx, prompt, sink)
}

// Answer collects the streamed answer into one string.
func (a *Answerer) Answer(ctx context.Context, query string, sessionID core.SessionID) (string, error) {
	var sb strings.Builder
	if err := a.StreamAnswer(ctx, query, sessionID, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	}); err != nil {
		return "", err
	}
	return sb.String(), nil
}
