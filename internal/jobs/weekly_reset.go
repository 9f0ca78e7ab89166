package jobs

import (
	"context"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CacheInvalidator drops a cached view after the data behind it changed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// WeeklyResetJob zeroes the rolling weekly XP counters at the start of each week.
type WeeklyResetJob struct {
	store       docstore.Store
	leaderboard CacheInvalidator
	config      *WeeklyResetConfig
	cron        *cron.Cron
	logger      *zap.Logger
}

type WeeklyResetConfig struct {
	Enabled   bool
	Schedule  string // e.g. "0 0 * * 1" for Monday midnight
	BatchSize int    // documents reset per commit
}

func NewWeeklyResetJob(store docstore.Store, leaderboard CacheInvalidator, config *WeeklyResetConfig, logger *zap.Logger) *WeeklyResetJob {
	return &WeeklyResetJob{
		store:       store,
		leaderboard: leaderboard,
		config:      config,
		cron:        cron.New(),
		logger:      logger.With(zap.String("job", "weekly_reset")),
	}
}

func (j *WeeklyResetJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("weekly reset is disabled, skipping scheduler")
		return nil
	}
	if _, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunReset(context.Background()); err != nil {
			j.logger.Error("weekly reset failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule weekly reset: %w", err)
	}
	j.cron.Start()
	j.logger.Info("weekly reset started", zap.String("schedule", j.config.Schedule))
	return nil
}

func (j *WeeklyResetJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("weekly reset stopped")
	}
}

// RunReset sets weeklyXp to zero on every profile and stats record that has
// a non-zero counter and returns how many documents were reset. An XP grant
// that commits between the query and the reset batch is lost from the weekly
// counter only; cumulative XP is untouched.
func (j *WeeklyResetJob) RunReset(ctx context.Context) (int, error) {
	total := 0
	for _, collection := range []string{repositories.UserStatsCollection, repositories.UsersCollection} {
		n, err := j.resetCollection(ctx, collection)
		total += n
		if err != nil {
			return total, err
		}
	}
	if j.leaderboard != nil {
		if err := j.leaderboard.Invalidate(ctx); err != nil {
			j.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
		}
	}
	j.logger.Info("weekly reset finished", zap.Int("documents", total))
	return total, nil
}

func (j *WeeklyResetJob) resetCollection(ctx context.Context, collection string) (int, error) {
	snaps, err := j.store.Find(ctx, docstore.Query{
		Collection: collection,
		Filters:    []docstore.Filter{docstore.Where("weeklyXp", docstore.OpGt, 0)},
	})
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", collection, err)
	}

	size := max(j.config.BatchSize, 1)
	reset := 0
	for start := 0; start < len(snaps); start += size {
		end := min(start+size, len(snaps))
		batch := j.store.NewBatch()
		for _, snap := range snaps[start:end] {
			batch.Update(collection, snap.ID, docstore.SetField("weeklyXp", 0))
		}
		if err := batch.Commit(ctx); err != nil {
			return reset, fmt.Errorf("reset %s: %w", collection, err)
		}
		reset += end - start
	}
	return reset, nil
}
