// Package storage opens the document store selected by configuration.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/config"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore/memstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore/mongostore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Indexes backs the archiver, weekly reset, leaderboard and activity queries.
var Indexes = map[string][]bson.D{
	repositories.QuestsCollection: {
		{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}},
	},
	repositories.UserStatsCollection: {
		{{Key: "weeklyXp", Value: -1}},
	},
	repositories.UsersCollection: {
		{{Key: "weeklyXp", Value: -1}},
	},
	repositories.ActivityCollection: {
		{{Key: "createdAt", Value: -1}},
	},
}

// Open returns the configured store. The memory driver keeps everything in
// process and is meant for local runs and tests.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory document store, data will not survive a restart")
		return memstore.New(), nil
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx, Indexes); err != nil {
			store.Close(context.Background())
			return nil, err
		}
		logger.Info("connected to mongo", zap.String("database", cfg.MongoDB))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
