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


package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Text must not be empty or whitespace only
//   - SessionId must be set
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - Vector (populated by the ingestion pipeline)
//   - ID (0 is valid until the repository assigns one)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyText)
	}

	if err := ValidateSessionID(doc.SessionId); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !IsValidTimestamp(doc.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSession validates a Session according to domain rules.
//
// Validation rules:
//   - Id must be set
//   - Name must not be empty
func ValidateSession(session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}

	if err := ValidateSessionID(session.Id); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if strings.TrimSpace(session.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptySessionName)
	}

	return nil
}

// ValidateSessionID checks that a session identifier is usable as a storage key.
// Identifiers must be non-empty and must not contain ':' (the key separator).
func ValidateSessionID(id SessionID) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if strings.ContainsAny(string(id), ": \t\n") {
		return fmt.Errorf("%w: %q contains reserved characters", ErrInvalidSessionID, string(id))
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
