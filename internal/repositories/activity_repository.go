package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ActivityChannel is the redis channel every appended entry is published on.
const ActivityChannel = "global_activity"

// ActivityRepository appends to the global activity log and fans entries out
// over redis pub/sub for live feeds.
type ActivityRepository struct {
	store  docstore.Store
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewActivityRepository creates the repository. rdb may be nil, in which case nothing is published.
func NewActivityRepository(store docstore.Store, rdb *redis.Client, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{store: store, rdb: rdb, logger: logger, now: time.Now}
}

// Append stores entry and publishes it. Publishing is best-effort.
func (r *ActivityRepository) Append(ctx context.Context, entry models.ActivityEntry) (string, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	id, err := r.store.Add(ctx, ActivityCollection, entry)
	if err != nil {
		return "", fmt.Errorf("append activity: %w", err)
	}
	entry.ID = id
	r.publish(ctx, entry)
	return id, nil
}

// Recent returns the newest entries first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	snaps, err := r.store.Find(ctx, docstore.Query{
		Collection: ActivityCollection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]models.ActivityEntry, 0, len(snaps))
	for _, snap := range snaps {
		var entry models.ActivityEntry
		if err := snap.DataTo(&entry); err != nil {
			r.logger.Warn("skipping malformed activity entry", zap.String("id", snap.ID), zap.Error(err))
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *ActivityRepository) publish(ctx context.Context, entry models.ActivityEntry) {
	if r.rdb == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("failed to marshal activity entry", zap.Error(err))
		return
	}
	if err := r.rdb.Publish(ctx, ActivityChannel, payload).Err(); err != nil {
		r.logger.Warn("failed to publish activity entry", zap.String("type", string(entry.Type)), zap.Error(err))
	}
}
