// Package mongostore implements docstore.Store on MongoDB. Transactions need
// a replica set or sharded deployment.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

type Store struct {
	raw    *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ docstore.Store = (*Store)(nil)

// Connect dials uri and returns a store bound to database dbName.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is empty")
	}
	if dbName == "" {
		dbName = "squadquest"
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{raw: c, db: c.Database(dbName), logger: logger}, nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// RunTransaction runs fn in a session transaction. The driver retries the
// whole callback on transient transaction errors.
func (s *Store) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	sess, err := s.raw.StartSession()
	if err != nil {
		return translate(err)
	}
	defer sess.EndSession(context.Background())

	opts := options.Transaction().SetWriteConcern(writeconcern.Majority())
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &transaction{store: s})
	}, opts)
	return translate(err)
}

func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	err := s.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	return translate(err)
}

func (s *Store) Find(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.collection(q.Collection).Find(ctx, buildFilter(q), opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	var out []docstore.Snapshot
	for cur.Next(ctx) {
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)
		id, _ := raw.Lookup("_id").StringValueOK()
		out = append(out, docstore.Snapshot{ID: id, Data: raw})
	}
	if err := cur.Err(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	m, err := toDocument(id, doc)
	if err != nil {
		return "", err
	}
	if _, err := s.collection(collection).InsertOne(ctx, m); err != nil {
		return "", translate(err)
	}
	return id, nil
}

func (s *Store) NewBatch() docstore.Batch {
	return &batch{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return translate(s.raw.Ping(ctx, readpref.Primary()))
}

func (s *Store) Close(ctx context.Context) error {
	return s.raw.Disconnect(ctx)
}

// EnsureIndexes creates the secondary indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context, indexes map[string][]bson.D) error {
	for coll, keys := range indexes {
		models := make([]mongo.IndexModel, 0, len(keys))
		for _, k := range keys {
			models = append(models, mongo.IndexModel{Keys: k})
		}
		if _, err := s.collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func buildFilter(q docstore.Query) bson.M {
	filter := bson.M{}
	for _, f := range q.Filters {
		var op string
		switch f.Op {
		case docstore.OpEq:
			op = "$eq"
		case docstore.OpLt:
			op = "$lt"
		case docstore.OpLte:
			op = "$lte"
		case docstore.OpGt:
			op = "$gt"
		case docstore.OpGte:
			op = "$gte"
		}
		cond, _ := filter[f.Field].(bson.M)
		if cond == nil {
			cond = bson.M{}
		}
		cond[op] = f.Value
		filter[f.Field] = cond
	}
	if q.OrderBy != "" {
		cond, _ := filter[q.OrderBy].(bson.M)
		if cond == nil {
			cond = bson.M{}
		}
		cond["$exists"] = true
		filter[q.OrderBy] = cond
	}
	return filter
}

func toDocument(id string, doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("mongostore: encode document %s: %w", id, err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("mongostore: decode document %s: %w", id, err)
	}
	if m == nil {
		m = bson.M{}
	}
	m["_id"] = id
	return m, nil
}

// Driver error labels that make WithTransaction retry the callback or commit.
const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
)

// translate maps driver errors onto the docstore taxonomy. The driver error
// stays in the chain so WithTransaction can still read its labels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.ErrNotFound
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrAlreadyExists),
		errors.Is(err, docstore.ErrConflict), errors.Is(err, docstore.ErrUnavailable):
		return err
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", docstore.ErrAlreadyExists, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %w", docstore.ErrUnavailable, err)
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && (labeled.HasErrorLabel(labelTransientTransaction) || labeled.HasErrorLabel(labelUnknownCommitResult)) {
		return fmt.Errorf("%w: %w", docstore.ErrConflict, err)
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "WriteConflict" {
		return fmt.Errorf("%w: %w", docstore.ErrConflict, err)
	}
	return err
}
