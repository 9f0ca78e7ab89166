// Package memstore is an in-process docstore.Store with optimistic
// transactions. It backs unit tests and STORE_DRIVER=memory.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

const defaultMaxAttempts = 5

type key struct {
	collection string
	id         string
}

type record struct {
	data    bson.Raw
	version uint64
}

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]*record
	clock       uint64
	now         func() time.Time
	maxAttempts int
}

type Option func(*Store)

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxAttempts sets how many times a conflicting transaction is retried.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]*record),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &transaction{store: s, reads: make(map[key]uint64), pending: make(map[key]bool)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		err := s.commit(tx.reads, tx.writes)
		if err == nil || !errors.Is(err, docstore.ErrConflict) {
			return err
		}
		if attempt >= s.maxAttempts {
			return fmt.Errorf("%w: gave up after %d attempts", err, attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Millisecond):
		}
	}
}

func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, _ := s.read(key{collection, id})
	if raw == nil {
		return docstore.ErrNotFound
	}
	return bson.Unmarshal(raw, out)
}

func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m, err := toDocument(id, doc)
	if err != nil {
		return "", err
	}
	if err := s.commit(nil, []write{{kind: writeCreate, key: key{collection, id}, doc: m}}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Find(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var out []docstore.Snapshot
	for id, rec := range s.collections[q.Collection] {
		if matches(rec.data, q.Filters) {
			out = append(out, docstore.Snapshot{ID: id, Data: slices.Clone(rec.data)})
		}
	}
	s.mu.Unlock()

	if q.OrderBy != "" {
		out = slices.DeleteFunc(out, func(snap docstore.Snapshot) bool {
			_, ok := fieldValue(snap.Data, q.OrderBy)
			return !ok
		})
	}
	slices.SortFunc(out, func(a, b docstore.Snapshot) int {
		if q.OrderBy != "" {
			av, _ := fieldValue(a.Data, q.OrderBy)
			bv, _ := fieldValue(b.Data, q.OrderBy)
			if c, ok := compare(av, bv); ok && c != 0 {
				if q.Descending {
					return -c
				}
				return c
			}
		}
		return strings.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) NewBatch() docstore.Batch {
	return &batch{store: s}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close(context.Context) error { return nil }

// Raw returns a copy of every stored document in collection keyed by id.
func (s *Store) Raw(collection string) map[string]bson.Raw {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bson.Raw, len(s.collections[collection]))
	for id, rec := range s.collections[collection] {
		out[id] = slices.Clone(rec.data)
	}
	return out
}

// Count returns the number of documents in collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func (s *Store) read(k key) (bson.Raw, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.collections[k.collection][k.id]
	if rec == nil {
		return nil, 0
	}
	return slices.Clone(rec.data), rec.version
}

func (s *Store) versionLocked(k key) uint64 {
	if rec := s.collections[k.collection][k.id]; rec != nil {
		return rec.version
	}
	return 0
}

// commit validates the read set and applies writes atomically.
func (s *Store) commit(reads map[key]uint64, writes []write) error {
	if len(writes) > docstore.MaxWritesPerCommit {
		return fmt.Errorf("%w: %d", docstore.ErrTooManyWrites, len(writes))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range reads {
		if s.versionLocked(k) != v {
			return fmt.Errorf("%w on %s/%s", docstore.ErrConflict, k.collection, k.id)
		}
	}
	if len(writes) == 0 {
		return nil
	}

	now := s.now().UTC()
	staged := make(map[key]bson.M)
	current := func(k key) (bson.M, bool, error) {
		if m, ok := staged[k]; ok {
			return m, m != nil, nil
		}
		rec := s.collections[k.collection][k.id]
		if rec == nil {
			return nil, false, nil
		}
		m, err := decode(rec.data)
		return m, err == nil, err
	}

	for _, w := range writes {
		m, exists, err := current(w.key)
		if err != nil {
			return err
		}
		switch w.kind {
		case writeCreate:
			if exists {
				return fmt.Errorf("%w: %s/%s", docstore.ErrAlreadyExists, w.key.collection, w.key.id)
			}
			staged[w.key] = copyDocument(w.doc)
		case writeSet:
			staged[w.key] = copyDocument(w.doc)
		case writeUpdate, writeMerge:
			if !exists {
				if w.kind == writeUpdate {
					return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, w.key.collection, w.key.id)
				}
				m = bson.M{"_id": w.key.id}
			}
			if err := applyOps(m, w.ops, now); err != nil {
				return err
			}
			staged[w.key] = m
		case writeDelete:
			staged[w.key] = nil
		}
	}

	encoded := make(map[key]bson.Raw, len(staged))
	for k, m := range staged {
		if m == nil {
			encoded[k] = nil
			continue
		}
		raw, err := bson.Marshal(m)
		if err != nil {
			return fmt.Errorf("memstore: encode %s/%s: %w", k.collection, k.id, err)
		}
		encoded[k] = raw
	}

	s.clock++
	for k, raw := range encoded {
		coll := s.collections[k.collection]
		if raw == nil {
			delete(coll, k.id)
			continue
		}
		if coll == nil {
			coll = make(map[string]*record)
			s.collections[k.collection] = coll
		}
		coll[k.id] = &record{data: raw, version: s.clock}
	}
	return nil
}

type writeKind int

const (
	writeCreate writeKind = iota
	writeSet
	writeUpdate
	writeMerge
	writeDelete
)

type write struct {
	kind writeKind
	key  key
	doc  bson.M
	ops  []docstore.Op
}
