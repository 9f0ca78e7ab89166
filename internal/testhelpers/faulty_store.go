package testhelpers

import (
	"context"
	"errors"
	"sync"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
)

var ErrInjected = errors.New("injected write failure")

// FaultyStore wraps a store and fails the Nth transactional Update on one
// collection, counted per transaction attempt.
type FaultyStore struct {
	docstore.Store
	Collection string
	FailOn     int
}

func (s *FaultyStore) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, collection: s.Collection, failOn: s.FailOn})
	})
}

type faultyTx struct {
	docstore.Tx
	collection string
	failOn     int
	updates    int
}

func (t *faultyTx) Update(ctx context.Context, collection, id string, ops ...docstore.Op) error {
	if collection == t.collection {
		t.updates++
		if t.updates == t.failOn {
			return ErrInjected
		}
	}
	return t.Tx.Update(ctx, collection, id, ops...)
}

// RecordingStore counts batch commits and their sizes.
type RecordingStore struct {
	docstore.Store

	mu      sync.Mutex
	commits []int
}

func (s *RecordingStore) NewBatch() docstore.Batch {
	return &recordingBatch{Batch: s.Store.NewBatch(), store: s}
}

// Commits returns the write count of each successful batch commit.
func (s *RecordingStore) Commits() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.commits...)
}

type recordingBatch struct {
	docstore.Batch
	store *RecordingStore
}

func (b *recordingBatch) Commit(ctx context.Context) error {
	if err := b.Batch.Commit(ctx); err != nil {
		return err
	}
	b.store.mu.Lock()
	b.store.commits = append(b.store.commits, b.Batch.Len())
	b.store.mu.Unlock()
	return nil
}
