package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored documents.
// It is generated from database sequences or content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Now returns the current time in UTC at the microsecond precision records
// are stored with, so a stamped value survives a storage round trip unchanged.
func Now() time.Time {
	return StoredTime(time.Now())
}

// StoredTime converts t to UTC and drops precision below a microsecond.
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// SessionID identifies a conversation session. Documents are partitioned by it.
type SessionID string

// String returns the raw identifier.
func (s SessionID) String() string {
	return string(s)
}

// Session is a scoping boundary for conversation documents.
type Session struct {
	Id          SessionID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is an indexed conversation fragment.
type Document struct {
	Id        ID
	SessionId SessionID
	Text      string
	CreatedAt time.Time         // When the fragment was saved
	UpdatedAt time.Time         // When the record was last updated (e.g. re-embedded)
	Vector    []float32         // Embedding vector for semantic search
	Metadata  map[string]string // Optional metadata (e.g., "speaker", "source")
}

// Candidate pairs a document with its cosine distance to a query vector.
// Candidates live for the duration of one retrieval call.
type Candidate struct {
	Document *Document
	Distance float32
}

// Similarity converts the cosine distance into a similarity (1 - distance).
func (c Candidate) Similarity() float64 {
	return 1 - float64(c.Distance)
}

// ScoredDocument is a fused retrieval result.
type ScoredDocument struct {
	Document *Document
	Dense    float64 // normalized dense score
	Sparse   float64 // normalized lexical score
	Score    float64 // weighted fusion of Dense and Sparse
}

// Checkpoint records the progress of a resumable batch job.
type Checkpoint struct {
	ProcessorType string
	LastId        ID
	UpdatedAt     time.Time
}
