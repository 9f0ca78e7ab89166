package mongostore

import (
	"context"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// transaction issues statements directly against the session context handed
// to the WithTransaction callback.
type transaction struct {
	store *Store
}

func (t *transaction) Get(ctx context.Context, collection, id string, out any) error {
	return t.store.Get(ctx, collection, id, out)
}

func (t *transaction) Create(ctx context.Context, collection, id string, doc any) error {
	m, err := toDocument(id, doc)
	if err != nil {
		return err
	}
	_, err = t.store.collection(collection).InsertOne(ctx, m)
	return translate(err)
}

func (t *transaction) Set(ctx context.Context, collection, id string, doc any) error {
	return setDocument(ctx, t.store.collection(collection), id, doc)
}

func (t *transaction) Update(ctx context.Context, collection, id string, ops ...docstore.Op) error {
	return updateDocument(ctx, t.store.collection(collection), id, ops, false)
}

func (t *transaction) Merge(ctx context.Context, collection, id string, ops ...docstore.Op) error {
	return updateDocument(ctx, t.store.collection(collection), id, ops, true)
}

func (t *transaction) Delete(ctx context.Context, collection, id string) error {
	_, err := t.store.collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return translate(err)
}

func setDocument(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	m, err := toDocument(id, doc)
	if err != nil {
		return err
	}
	_, err = coll.ReplaceOne(ctx, bson.M{"_id": id}, m, options.Replace().SetUpsert(true))
	return translate(err)
}

func updateDocument(ctx context.Context, coll *mongo.Collection, id string, ops []docstore.Op, upsert bool) error {
	if err := docstore.ValidateOps(ops); err != nil {
		return err
	}
	update := buildUpdate(ops)
	if len(update) == 0 {
		return nil
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(upsert))
	if err != nil {
		return translate(err)
	}
	if !upsert && res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, coll.Name(), id)
	}
	return nil
}

func buildUpdate(ops []docstore.Op) bson.M {
	operators := map[string]bson.M{}
	put := func(op, field string, value any) {
		if operators[op] == nil {
			operators[op] = bson.M{}
		}
		operators[op][field] = value
	}
	for _, op := range ops {
		switch op.Kind {
		case docstore.OpSet:
			put("$set", op.Field, op.Value)
		case docstore.OpInc:
			put("$inc", op.Field, op.Value)
		case docstore.OpArrayUnion:
			put("$addToSet", op.Field, bson.M{"$each": op.Values})
		case docstore.OpArrayRemove:
			put("$pull", op.Field, bson.M{"$in": op.Values})
		case docstore.OpServerTimestamp:
			put("$currentDate", op.Field, true)
		}
	}
	update := bson.M{}
	for op, fields := range operators {
		update[op] = fields
	}
	return update
}

type pendingWrite struct {
	collection string
	id         string
	doc        any
	ops        []docstore.Op
	delete     bool
}

type batch struct {
	store  *Store
	writes []pendingWrite
}

func (b *batch) Set(collection, id string, doc any) {
	b.writes = append(b.writes, pendingWrite{collection: collection, id: id, doc: doc})
}

func (b *batch) Update(collection, id string, ops ...docstore.Op) {
	b.writes = append(b.writes, pendingWrite{collection: collection, id: id, ops: ops})
}

func (b *batch) Delete(collection, id string) {
	b.writes = append(b.writes, pendingWrite{collection: collection, id: id, delete: true})
}

func (b *batch) Len() int { return len(b.writes) }

// Commit applies the batch inside one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.writes) > docstore.MaxWritesPerCommit {
		return fmt.Errorf("%w: %d", docstore.ErrTooManyWrites, len(b.writes))
	}
	return b.store.RunTransaction(ctx, func(ctx context.Context, _ docstore.Tx) error {
		for _, w := range b.writes {
			coll := b.store.collection(w.collection)
			var err error
			switch {
			case w.delete:
				_, err = coll.DeleteOne(ctx, bson.M{"_id": w.id})
				err = translate(err)
			case w.ops != nil:
				err = updateDocument(ctx, coll, w.id, w.ops, false)
			default:
				err = setDocument(ctx, coll, w.id, w.doc)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
