package repositories_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"
	"github.com/Ayuu1305/squad-quest-sub001/internal/testhelpers"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestRedis creates a miniredis instance and a redis client for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func setProfile(t *testing.T, store docstore.Store, id string, xp, weekly int64) {
	t.Helper()
	require.NoError(t, store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, repositories.UsersCollection, id, models.UserProfile{
			ID: id, DisplayName: "user " + id, XP: xp, Level: 1, WeeklyXP: weekly,
		})
	}))
}

func TestActivityAppendPublishes(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupTestRedis(t)
	store := testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
	repo := repositories.NewActivityRepository(store, rdb, zap.NewNop())

	sub := rdb.Subscribe(ctx, repositories.ActivityChannel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	messages := sub.Channel()

	id, err := repo.Append(ctx, models.ActivityEntry{Type: models.ActivityQuestJoined, UserID: "u1", QuestID: "q1", Message: "joined"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, store.Count(repositories.ActivityCollection))

	select {
	case msg := <-messages:
		var entry models.ActivityEntry
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &entry))
		assert.Equal(t, id, entry.ID)
		assert.Equal(t, models.ActivityQuestJoined, entry.Type)
		assert.False(t, entry.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("activity entry was not published")
	}
}

func TestActivityAppendSurvivesRedisOutage(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	store := testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
	repo := repositories.NewActivityRepository(store, rdb, zap.NewNop())
	mr.Close()

	_, err := repo.Append(context.Background(), models.ActivityEntry{Type: models.ActivityBountyClaimed, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count(repositories.ActivityCollection))
}

func TestActivityRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
	repo := repositories.NewActivityRepository(store, nil, zap.NewNop())

	for i, msg := range []string{"first", "second", "third"} {
		_, err := repo.Append(ctx, models.ActivityEntry{
			Type:      models.ActivityQuestCreated,
			UserID:    "u1",
			Message:   msg,
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}

func TestWeeklyLeaderboardIsCached(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupTestRedis(t)
	store := testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
	repo := repositories.NewLeaderboardRepository(store, rdb, 2, time.Minute, zap.NewNop())

	setProfile(t, store, "a", 500, 40)
	setProfile(t, store, "b", 100, 90)
	setProfile(t, store, "c", 50, 10)
	setProfile(t, store, "idle", 9000, 0)

	entries, err := repo.Weekly(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[0].Level)
	assert.Equal(t, "a", entries[1].UserID)
	assert.Equal(t, 4, entries[1].Level)
	assert.True(t, mr.Exists(repositories.WeeklyLeaderboardKey))
	assert.Equal(t, time.Minute, mr.TTL(repositories.WeeklyLeaderboardKey))

	setProfile(t, store, "c", 50, 1000)
	cached, err := repo.Weekly(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, cached)

	require.NoError(t, repo.Invalidate(ctx))
	fresh, err := repo.Weekly(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", fresh[0].UserID)
}

func TestWeeklyLeaderboardWithoutRedis(t *testing.T) {
	store := testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
	repo := repositories.NewLeaderboardRepository(store, nil, 0, time.Minute, zap.NewNop())
	setProfile(t, store, "a", 10, 10)

	entries, err := repo.Weekly(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NoError(t, repo.Invalidate(context.Background()))
}

func TestQuestLookups(t *testing.T) {
	store := testhelpers.SetupTestStore(t, testhelpers.NewClock(t0))
	testhelpers.SeedQuest(t, store, models.Quest{ID: "live", HostID: "h"})
	require.NoError(t, store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, repositories.ArchivedQuestsCollection, "cold", models.Quest{ID: "cold", Difficulty: models.DifficultyHard})
	}))

	err := store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		q, err := repositories.GetLiveQuest(ctx, tx, "live")
		require.NoError(t, err)
		assert.Equal(t, "live", q.ID)

		_, err = repositories.GetLiveQuest(ctx, tx, "cold")
		assert.ErrorIs(t, err, models.ErrQuestArchived)

		_, err = repositories.GetLiveQuest(ctx, tx, "nowhere")
		assert.ErrorIs(t, err, models.ErrQuestNotFound)

		q, err = repositories.GetAnyQuest(ctx, tx, "cold")
		require.NoError(t, err)
		assert.Equal(t, models.DifficultyHard, q.Difficulty)

		stats, err := repositories.Optional(repositories.GetUserStats(ctx, tx, "ghost"))
		assert.NoError(t, err)
		assert.Nil(t, stats)
		return nil
	})
	require.NoError(t, err)
}

func TestDocumentIDs(t *testing.T) {
	assert.Equal(t, "q1:u1", repositories.MemberID("q1", "u1"))
	assert.Equal(t, "2026-03-01", repositories.BountyDay(time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)))
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, "2026-03-01", repositories.BountyDay(time.Date(2026, 3, 2, 1, 0, 0, 0, ist)))
	assert.Equal(t, "u1:2026-03-01", repositories.BountyClaimID("u1", "2026-03-01"))
}
