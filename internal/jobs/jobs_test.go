package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore/memstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"
	"github.com/Ayuu1305/squad-quest-sub001/internal/rewards"
	"github.com/Ayuu1305/squad-quest-sub001/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	return testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
}

func seedCompletedQuests(t *testing.T, store docstore.Store, n int, age time.Duration) {
	t.Helper()
	batch := store.NewBatch()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("q%04d", i)
		batch.Set(repositories.QuestsCollection, id, models.Quest{
			ID:           id,
			Title:        "Old quest",
			Status:       models.QuestCompleted,
			Difficulty:   models.DifficultyEasy,
			HostID:       "host",
			Participants: []string{"host"},
			MaxPlayers:   4,
			UpdatedAt:    t0.Add(-age),
		})
		if batch.Len() == 500 {
			require.NoError(t, batch.Commit(context.Background()))
			batch = store.NewBatch()
		}
	}
	require.NoError(t, batch.Commit(context.Background()))
}

func newArchiver(store docstore.Store, dryRun bool, batchSize int) *ArchiverJob {
	job := NewArchiverJob(store, &ArchiverConfig{ThresholdDays: 7, BatchSize: batchSize, DryRun: dryRun}, zap.NewNop())
	job.SetClock(func() time.Time { return t0 })
	return job
}

func snapshot(store *memstore.Store, collections ...string) map[string][]byte {
	out := map[string][]byte{}
	for _, c := range collections {
		for id, raw := range store.Raw(c) {
			out[c+"/"+id] = bytes.Clone(raw)
		}
	}
	return out
}

func TestArchiverDryRunWritesNothing(t *testing.T) {
	store := newStore(t)
	seedCompletedQuests(t, store, 10, 30*24*time.Hour)
	before := snapshot(store, repositories.QuestsCollection, repositories.ArchivedQuestsCollection)

	report, err := newArchiver(store, true, 450).RunArchive(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 10, report.Matched)
	assert.Zero(t, report.Archived)

	assert.Equal(t, before, snapshot(store, repositories.QuestsCollection, repositories.ArchivedQuestsCollection))
	assert.Zero(t, store.Count(repositories.ArchivedQuestsCollection))
}

func TestArchiverCommitsBoundedBatches(t *testing.T) {
	store := newStore(t)
	seedCompletedQuests(t, store, 1000, 8*24*time.Hour)
	recording := &testhelpers.RecordingStore{Store: store}

	report, err := newArchiver(recording, false, 450).RunArchive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{450, 450, 100}, report.Batches)
	assert.Equal(t, []int{900, 900, 200}, recording.Commits())
	assert.Equal(t, 1000, report.Archived)

	assert.Zero(t, store.Count(repositories.QuestsCollection))
	assert.Equal(t, 1000, store.Count(repositories.ArchivedQuestsCollection))

	var archived bson.M
	require.NoError(t, store.Get(context.Background(), repositories.ArchivedQuestsCollection, "q0042", &archived))
	assert.Equal(t, repositories.QuestsCollection, archived["originalCollection"])
	assert.Contains(t, archived, "archivedAt")
	assert.Equal(t, "Old quest", archived["title"])
}

func TestArchiverSelectsOnlyOldCompletedQuests(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedCompletedQuests(t, store, 3, 8*24*time.Hour)
	testhelpers.SeedQuest(t, store, models.Quest{ID: "recent", Status: models.QuestCompleted, HostID: "h", UpdatedAt: t0.Add(-2 * 24 * time.Hour)})
	testhelpers.SeedQuest(t, store, models.Quest{ID: "stale-active", Status: models.QuestActive, HostID: "h", UpdatedAt: t0.Add(-30 * 24 * time.Hour)})
	testhelpers.SeedQuest(t, store, models.Quest{ID: "stale-cancelled", Status: models.QuestCancelled, HostID: "h", UpdatedAt: t0.Add(-30 * 24 * time.Hour)})

	report, err := newArchiver(store, false, 450).RunArchive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Archived)
	assert.Equal(t, 3, store.Count(repositories.QuestsCollection))

	_, err = newArchiver(store, false, 450).RunArchive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Count(repositories.ArchivedQuestsCollection))
}

type flakyBatchStore struct {
	docstore.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyBatchStore) NewBatch() docstore.Batch {
	return &flakyBatch{Batch: s.Store.NewBatch(), store: s}
}

type flakyBatch struct {
	docstore.Batch
	store *flakyBatchStore
}

func (b *flakyBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()
	if b.store.failures > 0 {
		b.store.failures--
		b.store.mu.Unlock()
		return docstore.ErrUnavailable
	}
	b.store.mu.Unlock()
	return b.Batch.Commit(ctx)
}

func TestArchiverRetriesTransientCommitFailures(t *testing.T) {
	store := newStore(t)
	seedCompletedQuests(t, store, 5, 10*24*time.Hour)

	report, err := newArchiver(&flakyBatchStore{Store: store, failures: 1}, false, 2).RunArchive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, report.Batches)
	assert.Equal(t, 5, store.Count(repositories.ArchivedQuestsCollection))
}

func TestArchiverStopsWhenBatchCannotCommit(t *testing.T) {
	store := newStore(t)
	seedCompletedQuests(t, store, 5, 10*24*time.Hour)

	report, err := newArchiver(&flakyBatchStore{Store: store, failures: 100}, false, 2).RunArchive(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, docstore.ErrUnavailable))
	assert.Zero(t, report.Archived)
	assert.Equal(t, 5, store.Count(repositories.QuestsCollection))
}

func TestArchivedCopyRejectsEmptyID(t *testing.T) {
	_, err := archivedCopy(docstore.Snapshot{}, t0)
	assert.ErrorIs(t, err, errMalformedQuest)
}

type invalidatorFunc func(ctx context.Context) error

func (f invalidatorFunc) Invalidate(ctx context.Context) error { return f(ctx) }

func TestWeeklyResetZeroesCounters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	engine := rewards.NewEngine(store, nil, rewards.DefaultConfig(), zap.NewNop())
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		testhelpers.SeedUser(t, store, id, 0)
		_, err := engine.ClaimBounty(ctx, id)
		require.NoError(t, err)
	}
	testhelpers.SeedUser(t, store, "idle", 40)

	invalidated := 0
	job := NewWeeklyResetJob(store, invalidatorFunc(func(context.Context) error {
		invalidated++
		return nil
	}), &WeeklyResetConfig{BatchSize: 2}, zap.NewNop())

	n, err := job.RunReset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 1, invalidated)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		stats := testhelpers.Stats(t, store, id)
		assert.Zero(t, stats.WeeklyXP)
		assert.Equal(t, int64(25), stats.XP)
		assert.Zero(t, testhelpers.Profile(t, store, id).WeeklyXP)
	}
}

type stubSyncer struct {
	mu    sync.Mutex
	seen  []string
	fails map[string]bool
}

func (s *stubSyncer) SyncUser(_ context.Context, userID, _ string) (*models.SyncUserResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, userID)
	if s.fails[userID] {
		return nil, errors.New("boom")
	}
	return &models.SyncUserResponse{UserID: userID, ProfileUpdated: userID == "u1"}, nil
}

func TestProfileSyncVisitsEveryUser(t *testing.T) {
	store := newStore(t)
	for _, id := range []string{"u1", "u2", "u3"} {
		testhelpers.SeedUser(t, store, id, 0)
	}
	syncer := &stubSyncer{fails: map[string]bool{"u3": true}}
	job := NewProfileSyncJob(store, syncer, &ProfileSyncConfig{Concurrency: 2}, zap.NewNop())

	report, err := job.RunSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, int64(1), report.Repaired)
	assert.Equal(t, int64(1), report.Failed)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, syncer.seen)
}

func TestProfileSyncRepairsDrift(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, repositories.UserStatsCollection, "u1", models.UserStats{ID: "u1", XP: 260, Level: 3, ReliabilityScore: 100}); err != nil {
			return err
		}
		return tx.Set(ctx, repositories.UsersCollection, "u1", models.UserProfile{ID: "u1", DisplayName: "Ana", XP: 10, Level: 1})
	}))
	engine := rewards.NewEngine(store, nil, rewards.DefaultConfig(), zap.NewNop())
	job := NewProfileSyncJob(store, engine, &ProfileSyncConfig{Concurrency: 4}, zap.NewNop())

	report, err := job.RunSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Repaired)

	profile := testhelpers.Profile(t, store, "u1")
	assert.Equal(t, int64(260), profile.XP)
	assert.Equal(t, 3, profile.Level)
}

func TestDisabledJobsDoNotSchedule(t *testing.T) {
	store := newStore(t)
	archiver := NewArchiverJob(store, &ArchiverConfig{Enabled: false, Schedule: "not a schedule"}, zap.NewNop())
	require.NoError(t, archiver.Start())
	archiver.Stop()

	reset := NewWeeklyResetJob(store, nil, &WeeklyResetConfig{Enabled: true, Schedule: "not a schedule"}, zap.NewNop())
	assert.Error(t, reset.Start())
}
