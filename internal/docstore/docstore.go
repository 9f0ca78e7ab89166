// Package docstore describes the document database capability the quest and
// reward services are written against: optimistic transactions, field-level
// update operators, bounded write batches and simple ordered queries.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound       = errors.New("docstore: document not found")
	ErrAlreadyExists  = errors.New("docstore: document already exists")
	ErrConflict       = errors.New("docstore: transaction conflict")
	ErrUnavailable    = errors.New("docstore: store unavailable")
	ErrTooManyWrites  = errors.New("docstore: too many writes in one commit")
	ErrReadAfterWrite = errors.New("docstore: reads must happen before writes in a transaction")
)

// MaxWritesPerCommit bounds the writes a single transaction or batch may carry.
const MaxWritesPerCommit = 1000

// Retriable reports whether err is a transient store failure the caller may retry.
func Retriable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}

// TxFunc is the body of a transaction. It may be invoked more than once when
// the store retries after a conflict, so it must not have side effects outside
// tx. Reads and writes must use the ctx it is handed.
type TxFunc func(ctx context.Context, tx Tx) error

// Tx is a transaction handle. All reads must precede all writes.
type Tx interface {
	// Get decodes the document into out or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, out any) error
	// Create writes a new document and fails with ErrAlreadyExists if one is present.
	Create(ctx context.Context, collection, id string, doc any) error
	// Set replaces the whole document, creating it if needed.
	Set(ctx context.Context, collection, id string, doc any) error
	// Update applies ops to an existing document or returns ErrNotFound.
	Update(ctx context.Context, collection, id string, ops ...Op) error
	// Merge applies ops, creating the document if it does not exist.
	Merge(ctx context.Context, collection, id string, ops ...Op) error
	Delete(ctx context.Context, collection, id string) error
}

// Batch is a set of blind writes committed atomically.
type Batch interface {
	Set(collection, id string, doc any)
	Update(collection, id string, ops ...Op)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// Store is the document database used by the services.
type Store interface {
	RunTransaction(ctx context.Context, fn TxFunc) error
	Get(ctx context.Context, collection, id string, out any) error
	Find(ctx context.Context, q Query) ([]Snapshot, error)
	// Add inserts doc under a generated id and returns it.
	Add(ctx context.Context, collection string, doc any) (string, error)
	NewBatch() Batch
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Snapshot is one document returned by Find.
type Snapshot struct {
	ID   string
	Data bson.Raw
}

// DataTo decodes the snapshot into out.
func (s Snapshot) DataTo(out any) error {
	return bson.Unmarshal(s.Data, out)
}
