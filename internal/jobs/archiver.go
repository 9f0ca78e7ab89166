package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	commitAttempts = 3
	commitBackoff  = 200 * time.Millisecond
)

// ArchiverJob moves completed quests that have been idle past the retention
// threshold from the working set into the archive collection.
type ArchiverJob struct {
	store  docstore.Store
	config *ArchiverConfig
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

// ArchiverConfig contains configuration for the archiver job
type ArchiverConfig struct {
	Enabled       bool
	Schedule      string // cron schedule, e.g. "0 3 * * *"
	ThresholdDays int    // completed quests idle longer than this are archived
	BatchSize     int    // quests (copy + delete pairs) per commit
	DryRun        bool   // log matches without writing
}

// RunReport summarizes one archiver run.
type RunReport struct {
	DryRun   bool      `json:"dryRun"`
	Cutoff   time.Time `json:"cutoff"`
	Matched  int       `json:"matched"`
	Archived int       `json:"archived"`
	Skipped  int       `json:"skipped"`
	Batches  []int     `json:"batches"`
}

func NewArchiverJob(store docstore.Store, config *ArchiverConfig, logger *zap.Logger) *ArchiverJob {
	return &ArchiverJob{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: logger.With(zap.String("job", "archiver")),
		now:    time.Now,
	}
}

// SetClock overrides the job's clock.
func (j *ArchiverJob) SetClock(now func() time.Time) {
	j.now = now
}

// Start begins the scheduled archive job
func (j *ArchiverJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("archiver is disabled, skipping scheduler")
		return nil
	}
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunArchive(context.Background()); err != nil {
			j.logger.Error("archive run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule archiver: %w", err)
	}
	j.cron.Start()
	j.logger.Info("archiver started", zap.String("schedule", j.config.Schedule), zap.Bool("dry_run", j.config.DryRun))
	return nil
}

// Stop stops the scheduler and waits for a running archive to finish.
func (j *ArchiverJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("archiver stopped")
	}
}

// RunArchive performs a single archive pass. Malformed quests are skipped;
// a failed query or a batch that cannot be committed ends the run, leaving
// earlier batches committed.
func (j *ArchiverJob) RunArchive(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		DryRun:  j.config.DryRun,
		Cutoff:  j.now().UTC().AddDate(0, 0, -j.config.ThresholdDays),
		Batches: []int{},
	}

	snaps, err := j.store.Find(ctx, docstore.Query{
		Collection: repositories.QuestsCollection,
		Filters: []docstore.Filter{
			docstore.Where("status", docstore.OpEq, string(models.QuestCompleted)),
			docstore.Where("updatedAt", docstore.OpLt, report.Cutoff),
		},
		OrderBy: "updatedAt",
	})
	if err != nil {
		metrics.RecordArchiveRun("failed", 0)
		return report, fmt.Errorf("query archivable quests: %w", err)
	}
	report.Matched = len(snaps)
	j.logger.Info("archive run started", zap.Int("matched", report.Matched), zap.Time("cutoff", report.Cutoff), zap.Bool("dry_run", report.DryRun))

	if report.DryRun {
		for _, snap := range snaps {
			j.logger.Info("would archive quest", zap.String("quest_id", snap.ID))
		}
		metrics.RecordArchiveRun("dry_run", 0)
		return report, nil
	}

	batch := j.store.NewBatch()
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := j.commit(ctx, batch); err != nil {
			return err
		}
		report.Archived += pending
		report.Batches = append(report.Batches, pending)
		j.logger.Info("archive batch committed", zap.Int("quests", pending))
		batch, pending = j.store.NewBatch(), 0
		return nil
	}

	archivedAt := j.now().UTC()
	for _, snap := range snaps {
		doc, err := archivedCopy(snap, archivedAt)
		if err != nil {
			report.Skipped++
			j.logger.Warn("skipping quest", zap.String("quest_id", snap.ID), zap.Error(err))
			continue
		}
		batch.Set(repositories.ArchivedQuestsCollection, snap.ID, doc)
		batch.Delete(repositories.QuestsCollection, snap.ID)
		pending++
		if pending >= j.config.BatchSize {
			if err := flush(); err != nil {
				metrics.RecordArchiveRun("failed", report.Archived)
				return report, err
			}
		}
	}
	if err := flush(); err != nil {
		metrics.RecordArchiveRun("failed", report.Archived)
		return report, err
	}

	metrics.RecordArchiveRun("ok", report.Archived)
	j.logger.Info("archive run finished",
		zap.Int("archived", report.Archived),
		zap.Int("skipped", report.Skipped),
		zap.Ints("batches", report.Batches),
	)
	return report, nil
}

// commit retries transient failures a bounded number of times.
func (j *ArchiverJob) commit(ctx context.Context, batch docstore.Batch) error {
	var err error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		if err = batch.Commit(ctx); err == nil || !docstore.Retriable(err) || attempt == commitAttempts {
			break
		}
		j.logger.Warn("archive batch commit failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * commitBackoff):
		}
	}
	if err != nil {
		return fmt.Errorf("commit archive batch: %w", err)
	}
	return nil
}

var errMalformedQuest = errors.New("malformed quest document")

// archivedCopy keeps the quest's fields in their stored order and tags the
// copy with when and where it was archived from.
func archivedCopy(snap docstore.Snapshot, archivedAt time.Time) (bson.D, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("%w: empty id", errMalformedQuest)
	}
	var doc bson.D
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedQuest, err)
	}
	out := make(bson.D, 0, len(doc)+2)
	for _, e := range doc {
		if e.Key == "archivedAt" || e.Key == "originalCollection" {
			continue
		}
		out = append(out, e)
	}
	out = append(out,
		bson.E{Key: "archivedAt", Value: archivedAt},
		bson.E{Key: "originalCollection", Value: repositories.QuestsCollection},
	)
	if _, err := bson.Marshal(out); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedQuest, err)
	}
	return out, nil
}
