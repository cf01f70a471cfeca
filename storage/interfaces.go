package storage

import (
	"context"
	"errors"

	"github.com/poiesic/sessionrag/core"
)

var (
	// ErrNotFound is returned when a lookup by ID finds no record.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a record with the same key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageClosed is returned by operations on a closed backend.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for malformed query or write arguments.
	ErrInvalidQuery = errors.New("invalid query parameters")
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// Filter restricts a vector query. SessionId is an equality predicate and is required.
type Filter struct {
	SessionId core.SessionID
}

// VectorIndex stores document vectors and answers nearest-neighbor queries.
// Distances use the cosine metric: 0 means identical, larger means more different.
type VectorIndex interface {
	// Query returns up to limit documents matching filter, ordered by ascending distance.
	// Documents without a vector are never returned.
	// Returns an empty slice when nothing in the filtered partition is indexed.
	Query(ctx context.Context, vector []float32, filter Filter, limit int) ([]core.Candidate, error)

	// Upsert inserts or replaces the document with the given ID.
	// Documents with ID=0 get a new ID from the sequence.
	Upsert(ctx context.Context, doc *core.Document) (*core.Document, error)

	// DeleteByIDs removes documents and their index entries.
	// Unknown IDs are ignored.
	DeleteByIDs(ctx context.Context, ids ...core.ID) error
}

// DocumentRepository provides operations for managing conversation documents.
type DocumentRepository interface {
	Repository
	VectorIndex

	// AddDocuments adds one or more documents to storage.
	// Always assigns new IDs from the sequence.
	// Sets CreatedAt if not already set.
	// Returns the documents with generated IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// GetSessionDocuments retrieves all documents of a session in insertion order.
	GetSessionDocuments(ctx context.Context, sessionID core.SessionID) ([]*core.Document, error)

	// GetDocumentsAfter retrieves up to limit documents with ID > afterID, in ID order.
	// Used for batch iteration over the whole store.
	GetDocumentsAfter(ctx context.Context, afterID core.ID, limit int) ([]*core.Document, error)

	// CountDocuments returns the total number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// SessionRepository provides operations for managing sessions.
type SessionRepository interface {
	Repository

	// AddSession stores a new session.
	// Sets CreatedAt and UpdatedAt if not already set.
	// Returns ErrDuplicateKey if a session with the same ID exists.
	AddSession(ctx context.Context, session *core.Session) (*core.Session, error)

	// UpdateSession replaces an existing session.
	// Returns ErrNotFound if the session doesn't exist.
	UpdateSession(ctx context.Context, session *core.Session) (*core.Session, error)

	// DeleteSessions removes sessions by their IDs.
	// Returns ErrNotFound if any session doesn't exist.
	DeleteSessions(ctx context.Context, ids ...core.SessionID) error

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id core.SessionID) (*core.Session, error)

	// ListSessions returns all sessions ordered by creation time.
	ListSessions(ctx context.Context) ([]*core.Session, error)
}

// CheckpointRepository persists the progress of resumable batch jobs.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint for a processor type.
	ClearCheckpoint(ctx context.Context, processorType string) error
}
