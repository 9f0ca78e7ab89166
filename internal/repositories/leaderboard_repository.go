package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/leveling"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const WeeklyLeaderboardKey = "leaderboard:weekly"

// LeaderboardRepository reads the weekly ranking from public profiles and
// caches it in redis.
type LeaderboardRepository struct {
	store  docstore.Store
	rdb    *redis.Client
	size   int
	ttl    time.Duration
	logger *zap.Logger
}

func NewLeaderboardRepository(store docstore.Store, rdb *redis.Client, size int, ttl time.Duration, logger *zap.Logger) *LeaderboardRepository {
	if size <= 0 {
		size = 50
	}
	return &LeaderboardRepository{store: store, rdb: rdb, size: size, ttl: ttl, logger: logger}
}

// Weekly returns the top users by weekly XP, served from cache when fresh.
func (r *LeaderboardRepository) Weekly(ctx context.Context) ([]models.LeaderboardEntry, error) {
	if entries, ok := r.cached(ctx); ok {
		return entries, nil
	}

	snaps, err := r.store.Find(ctx, docstore.Query{
		Collection: UsersCollection,
		Filters:    []docstore.Filter{docstore.Where("weeklyXp", docstore.OpGt, 0)},
		OrderBy:    "weeklyXp",
		Descending: true,
		Limit:      r.size,
	})
	if err != nil {
		return nil, fmt.Errorf("query weekly leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(snaps))
	for _, snap := range snaps {
		var profile models.UserProfile
		if err := snap.DataTo(&profile); err != nil {
			r.logger.Warn("skipping malformed profile", zap.String("user_id", snap.ID), zap.Error(err))
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:        len(entries) + 1,
			UserID:      snap.ID,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
			Level:       leveling.LevelFromXP(profile.XP),
			WeeklyXP:    profile.WeeklyXP,
		})
	}

	r.fill(ctx, entries)
	return entries, nil
}

// Invalidate drops the cached ranking.
func (r *LeaderboardRepository) Invalidate(ctx context.Context) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, WeeklyLeaderboardKey).Err()
}

func (r *LeaderboardRepository) cached(ctx context.Context) ([]models.LeaderboardEntry, bool) {
	if r.rdb == nil || r.ttl <= 0 {
		return nil, false
	}
	data, err := r.rdb.Get(ctx, WeeklyLeaderboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("leaderboard cache read failed", zap.Error(err))
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("leaderboard cache entry is corrupt", zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (r *LeaderboardRepository) fill(ctx context.Context, entries []models.LeaderboardEntry) {
	if r.rdb == nil || r.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, WeeklyLeaderboardKey, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
}
