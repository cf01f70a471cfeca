package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend *Backend
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) *SessionRepository {
	return &SessionRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend owns all resources.
func (r *SessionRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SessionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSession stores a new session.
func (r *SessionRepository) AddSession(ctx context.Context, session *core.Session) (*core.Session, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(session.Id)
		existing, err := readSession(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		if session.CreatedAt.IsZero() {
			session.CreatedAt = core.Now()
		} else {
			session.CreatedAt = core.StoredTime(session.CreatedAt)
		}
		if session.UpdatedAt.IsZero() {
			session.UpdatedAt = session.CreatedAt
		} else {
			session.UpdatedAt = core.StoredTime(session.UpdatedAt)
		}

		if err := tx.Set(key, storage.MarshalSession(session)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSession replaces an existing session, keeping its creation time.
func (r *SessionRepository) UpdateSession(ctx context.Context, session *core.Session) (*core.Session, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(session.Id)
		old, err := readSession(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		session.CreatedAt = old.CreatedAt
		session.UpdatedAt = core.Now()

		if err := tx.Set(key, storage.MarshalSession(session)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSessions removes sessions by their IDs.
// Documents are not touched; callers remove them through the DocumentRepository.
func (r *SessionRepository) DeleteSessions(ctx context.Context, ids ...core.SessionID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeSessionKey(id)
			existing, err := readSession(tx, key)
			if err != nil {
				return err
			}
			if existing == nil {
				return storage.ErrNotFound
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id core.SessionID) (*core.Session, error) {
	var result *core.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSession(tx, makeSessionKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListSessions returns all sessions ordered by creation time, oldest first.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]*core.Session, error) {
	results := []*core.Session{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var session *core.Session
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				session, err = storage.UnmarshalSession(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, session)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return results, nil
}

// readSession reads a session from the transaction.
// Returns nil, nil if the key doesn't exist.
func readSession(tx *badger.Txn, key []byte) (*core.Session, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var session *core.Session
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		session, unmarshalErr = storage.UnmarshalSession(val)
		return unmarshalErr
	})
	return session, err
}
