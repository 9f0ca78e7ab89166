package jobs

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserSyncer reconciles one user's profile with their stats record.
type UserSyncer interface {
	SyncUser(ctx context.Context, userID, displayName string) (*models.SyncUserResponse, error)
}

// ProfileSyncJob sweeps every stats record and repairs drifted profiles.
type ProfileSyncJob struct {
	store  docstore.Store
	syncer UserSyncer
	config *ProfileSyncConfig
	cron   *cron.Cron
	logger *zap.Logger
}

type ProfileSyncConfig struct {
	Enabled     bool
	Schedule    string
	Concurrency int // users synced in parallel
}

// SyncReport summarizes one sweep.
type SyncReport struct {
	Users    int   `json:"users"`
	Repaired int64 `json:"repaired"`
	Failed   int64 `json:"failed"`
}

func NewProfileSyncJob(store docstore.Store, syncer UserSyncer, config *ProfileSyncConfig, logger *zap.Logger) *ProfileSyncJob {
	return &ProfileSyncJob{
		store:  store,
		syncer: syncer,
		config: config,
		cron:   cron.New(),
		logger: logger.With(zap.String("job", "profile_sync")),
	}
}

func (j *ProfileSyncJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("profile sync is disabled, skipping scheduler")
		return nil
	}
	if _, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunSync(context.Background()); err != nil {
			j.logger.Error("profile sync failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule profile sync: %w", err)
	}
	j.cron.Start()
	j.logger.Info("profile sync started", zap.String("schedule", j.config.Schedule))
	return nil
}

func (j *ProfileSyncJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("profile sync stopped")
	}
}

// RunSync syncs every user that has a stats record. Per-user failures are
// counted and logged; only a failed listing or cancellation stops the sweep.
func (j *ProfileSyncJob) RunSync(ctx context.Context) (*SyncReport, error) {
	snaps, err := j.store.Find(ctx, docstore.Query{Collection: repositories.UserStatsCollection})
	if err != nil {
		return nil, fmt.Errorf("list stats records: %w", err)
	}
	report := &SyncReport{Users: len(snaps)}

	var repaired, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(j.config.Concurrency, 1))
	for _, snap := range snaps {
		userID := snap.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resp, err := j.syncer.SyncUser(gctx, userID, "")
			if err != nil {
				failed.Add(1)
				j.logger.Warn("user sync failed", zap.String("user_id", userID), zap.Error(err))
				return nil
			}
			if resp.ProfileUpdated {
				repaired.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	report.Repaired, report.Failed = repaired.Load(), failed.Load()
	if err != nil {
		return report, err
	}
	j.logger.Info("profile sync finished", zap.Int("users", report.Users), zap.Int64("repaired", report.Repaired), zap.Int64("failed", report.Failed))
	return report, nil
}
