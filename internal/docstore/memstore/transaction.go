package memstore

import (
	"context"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"

	"go.mongodb.org/mongo-driver/bson"
)

// transaction buffers writes and records the version of every document it
// observed. The commit fails with ErrConflict if any of them changed.
type transaction struct {
	store   *Store
	reads   map[key]uint64
	writes  []write
	pending map[key]bool
}

func (t *transaction) observe(k key) bson.Raw {
	raw, version := t.store.read(k)
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = version
	}
	return raw
}

func (t *transaction) exists(k key) bool {
	if present, ok := t.pending[k]; ok {
		return present
	}
	return t.observe(k) != nil
}

func (t *transaction) buffer(w write, present bool) error {
	if len(t.writes) >= docstore.MaxWritesPerCommit {
		return fmt.Errorf("%w: limit %d", docstore.ErrTooManyWrites, docstore.MaxWritesPerCommit)
	}
	t.writes = append(t.writes, w)
	t.pending[w.key] = present
	return nil
}

func (t *transaction) Get(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(t.writes) > 0 {
		return docstore.ErrReadAfterWrite
	}
	raw := t.observe(key{collection, id})
	if raw == nil {
		return docstore.ErrNotFound
	}
	return bson.Unmarshal(raw, out)
}

func (t *transaction) Create(ctx context.Context, collection, id string, doc any) error {
	k := key{collection, id}
	if t.exists(k) {
		return fmt.Errorf("%w: %s/%s", docstore.ErrAlreadyExists, collection, id)
	}
	m, err := toDocument(id, doc)
	if err != nil {
		return err
	}
	return t.buffer(write{kind: writeCreate, key: k, doc: m}, true)
}

func (t *transaction) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := toDocument(id, doc)
	if err != nil {
		return err
	}
	return t.buffer(write{kind: writeSet, key: key{collection, id}, doc: m}, true)
}

func (t *transaction) Update(ctx context.Context, collection, id string, ops ...docstore.Op) error {
	if err := docstore.ValidateOps(ops); err != nil {
		return err
	}
	k := key{collection, id}
	if !t.exists(k) {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	return t.buffer(write{kind: writeUpdate, key: k, ops: ops}, true)
}

func (t *transaction) Merge(ctx context.Context, collection, id string, ops ...docstore.Op) error {
	if err := docstore.ValidateOps(ops); err != nil {
		return err
	}
	return t.buffer(write{kind: writeMerge, key: key{collection, id}, ops: ops}, true)
}

func (t *transaction) Delete(ctx context.Context, collection, id string) error {
	return t.buffer(write{kind: writeDelete, key: key{collection, id}}, false)
}

type batch struct {
	store  *Store
	writes []write
	err    error
}

func (b *batch) Set(collection, id string, doc any) {
	m, err := toDocument(id, doc)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	b.writes = append(b.writes, write{kind: writeSet, key: key{collection, id}, doc: m})
}

func (b *batch) Update(collection, id string, ops ...docstore.Op) {
	if err := docstore.ValidateOps(ops); err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	b.writes = append(b.writes, write{kind: writeUpdate, key: key{collection, id}, ops: ops})
}

func (b *batch) Delete(collection, id string) {
	b.writes = append(b.writes, write{kind: writeDelete, key: key{collection, id}})
}

func (b *batch) Len() int { return len(b.writes) }

func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.err != nil {
		return b.err
	}
	return b.store.commit(nil, b.writes)
}
