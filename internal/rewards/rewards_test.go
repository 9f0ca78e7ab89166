package rewards_test

import (
	"context"
	"testing"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/leveling"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"
	"github.com/Ayuu1305/squad-quest-sub001/internal/rewards"
	"github.com/Ayuu1305/squad-quest-sub001/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (docstore.Store, *testhelpers.Clock, *rewards.Engine) {
	t.Helper()
	clock := testhelpers.NewClock(t0)
	store := testhelpers.SetupTestStore(t, clock)
	engine := rewards.NewEngine(store, nil, rewards.DefaultConfig(), zap.NewNop())
	engine.SetClock(clock.Now)
	return store, clock, engine
}

func seedSquad(t *testing.T, store docstore.Store, questID string, members ...string) {
	t.Helper()
	for _, m := range members {
		testhelpers.SeedUser(t, store, m, 0)
	}
	testhelpers.SeedQuest(t, store, models.Quest{
		ID:           questID,
		Title:        "Karaoke night",
		Status:       models.QuestCompleted,
		StartTime:    t0.Add(-3 * time.Hour),
		MaxPlayers:   10,
		HostID:       members[0],
		Participants: members,
	})
}

func write(t *testing.T, store docstore.Store, collection, id string, doc any) {
	t.Helper()
	require.NoError(t, store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, collection, id, doc)
	}))
}

func TestVibeCheckDropsSelfReview(t *testing.T) {
	store, _, engine := setup(t)
	seedSquad(t, store, "q1", "r", "u1")

	resp, err := engine.SubmitVibeCheck(context.Background(), "r", &models.VibeCheckRequest{
		QuestID: "q1",
		Reviews: map[string][]models.VibeTag{
			"u1": {models.TagLeader, models.TagFunny},
			"r":  {models.TagListener},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Rewards, 1)
	assert.Equal(t, "u1", resp.Rewards[0].UserID)
	assert.Equal(t, int64(10), resp.Rewards[0].XP)
	assert.Equal(t, int64(50), resp.ReviewerBonus)

	u1 := testhelpers.Stats(t, store, "u1")
	assert.Equal(t, int64(10), u1.XP)
	assert.Equal(t, int64(10), u1.WeeklyXP)
	assert.Equal(t, int64(1), u1.FeedbackCounts[models.TagLeader])
	assert.Equal(t, int64(1), u1.FeedbackCounts[models.TagFunny])
	assert.Zero(t, u1.FeedbackCounts[models.TagListener])

	r := testhelpers.Stats(t, store, "r")
	assert.Equal(t, int64(50), r.XP)
	assert.Zero(t, r.FeedbackCounts[models.TagListener])
	assert.Equal(t, int64(50), testhelpers.Profile(t, store, "r").XP)
}

func TestVibeCheckReplayGrantsNothing(t *testing.T) {
	store, _, engine := setup(t)
	seedSquad(t, store, "q1", "r", "u1")
	req := &models.VibeCheckRequest{QuestID: "q1", Reviews: map[string][]models.VibeTag{"u1": {models.TagTeamPlayer}}}

	_, err := engine.SubmitVibeCheck(context.Background(), "r", req)
	require.NoError(t, err)
	resp, err := engine.SubmitVibeCheck(context.Background(), "r", req)
	require.NoError(t, err)
	assert.True(t, resp.AlreadyClaimed)
	assert.Empty(t, resp.Rewards)
	assert.Zero(t, resp.ReviewerBonus)

	assert.Equal(t, int64(5), testhelpers.Stats(t, store, "u1").XP)
	assert.Equal(t, int64(50), testhelpers.Stats(t, store, "r").XP)
}

func TestVibeCheckIgnoresNonParticipants(t *testing.T) {
	store, _, engine := setup(t)
	seedSquad(t, store, "q1", "r", "u1")
	testhelpers.SeedUser(t, store, "outsider", 0)

	resp, err := engine.SubmitVibeCheck(context.Background(), "r", &models.VibeCheckRequest{
		QuestID: "q1",
		Reviews: map[string][]models.VibeTag{"outsider": {models.TagFunny}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Rewards)
	assert.Zero(t, resp.ReviewerBonus)
	assert.Zero(t, testhelpers.Stats(t, store, "outsider").XP)
	assert.Zero(t, testhelpers.Stats(t, store, "r").XP)

	_, err = engine.SubmitVibeCheck(context.Background(), "outsider", &models.VibeCheckRequest{
		QuestID: "q1",
		Reviews: map[string][]models.VibeTag{"u1": {models.TagFunny}},
	})
	assert.ErrorIs(t, err, models.ErrNotMember)
}

func TestVibeCheckRejectsInvalidRequest(t *testing.T) {
	_, _, engine := setup(t)
	_, err := engine.SubmitVibeCheck(context.Background(), "r", &models.VibeCheckRequest{
		QuestID: "q1",
		Reviews: map[string][]models.VibeTag{"u1": {"grumpy"}},
	})
	var resp *models.ErrorResponse
	assert.ErrorAs(t, err, &resp)
}

func TestVibeCheckIsAllOrNothing(t *testing.T) {
	store, _, _ := setup(t)
	members := []string{"r", "u1", "u2", "u3", "u4", "u5"}
	seedSquad(t, store, "q1", members...)

	faulty := &testhelpers.FaultyStore{Store: store, Collection: repositories.UserStatsCollection, FailOn: 3}
	engine := rewards.NewEngine(faulty, nil, rewards.DefaultConfig(), zap.NewNop())

	reviews := map[string][]models.VibeTag{}
	for _, m := range members[1:] {
		reviews[m] = []models.VibeTag{models.TagLeader, models.TagListener}
	}
	_, err := engine.SubmitVibeCheck(context.Background(), "r", &models.VibeCheckRequest{QuestID: "q1", Reviews: reviews})
	require.ErrorIs(t, err, testhelpers.ErrInjected)

	for _, m := range members {
		stats := testhelpers.Stats(t, store, m)
		assert.Zero(t, stats.XP, m)
		assert.Zero(t, stats.WeeklyXP, m)
		assert.Empty(t, stats.FeedbackCounts, m)
		assert.Zero(t, testhelpers.Profile(t, store, m).XP, m)
	}
	var marker models.VibeCheckRecord
	err = store.Get(context.Background(), repositories.VibeChecksCollection, repositories.VibeCheckID("q1", "r"), &marker)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestVibeCheckArchivedQuest(t *testing.T) {
	store, _, engine := setup(t)
	testhelpers.SeedUser(t, store, "r", 0)
	write(t, store, repositories.ArchivedQuestsCollection, "old", models.Quest{ID: "old", HostID: "r", Participants: []string{"r"}})

	_, err := engine.SubmitVibeCheck(context.Background(), "r", &models.VibeCheckRequest{
		QuestID: "old",
		Reviews: map[string][]models.VibeTag{"u1": {models.TagFunny}},
	})
	assert.ErrorIs(t, err, models.ErrQuestArchived)
}

func TestAwardCompletion(t *testing.T) {
	store, _, engine := setup(t)
	ctx := context.Background()
	testhelpers.SeedUser(t, store, "u1", 0)
	testhelpers.SeedQuest(t, store, models.Quest{ID: "hard", Difficulty: models.DifficultyHard, HostID: "u1", Status: models.QuestActive})

	_, err := engine.AwardCompletion(ctx, "hard", "u1")
	assert.ErrorIs(t, err, models.ErrNotVerified)

	vid := repositories.VerificationID("hard", "u1")
	write(t, store, repositories.VerificationsCollection, vid, models.Verification{ID: vid, QuestID: "hard", UserID: "u1", Completed: true})

	xp, err := engine.AwardCompletion(ctx, "hard", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), xp)

	xp, err = engine.AwardCompletion(ctx, "hard", "u1")
	require.NoError(t, err)
	assert.Zero(t, xp)

	stats := testhelpers.Stats(t, store, "u1")
	assert.Equal(t, int64(150), stats.XP)
	assert.Equal(t, int64(1), stats.QuestsCompleted)

	var v models.Verification
	require.NoError(t, store.Get(ctx, repositories.VerificationsCollection, vid, &v))
	assert.True(t, v.Rewarded)
	assert.Equal(t, int64(150), v.XPAwarded)
	require.NotNil(t, v.RewardedAt)
	assert.True(t, v.RewardedAt.Equal(t0))
}

func TestAwardCompletionAfterArchival(t *testing.T) {
	store, _, engine := setup(t)
	testhelpers.SeedUser(t, store, "u1", 0)
	write(t, store, repositories.ArchivedQuestsCollection, "old", models.Quest{ID: "old", Difficulty: models.DifficultyEasy})
	vid := repositories.VerificationID("old", "u1")
	write(t, store, repositories.VerificationsCollection, vid, models.Verification{ID: vid, QuestID: "old", UserID: "u1", Completed: true})

	xp, err := engine.AwardCompletion(context.Background(), "old", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), xp)
}

func TestClaimBountyOncePerDay(t *testing.T) {
	store, clock, engine := setup(t)
	ctx := context.Background()
	testhelpers.SeedUser(t, store, "u1", 90)

	resp, err := engine.ClaimBounty(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, resp.AlreadyClaimed)
	assert.Equal(t, "2026-03-01", resp.Day)
	assert.Equal(t, int64(115), resp.NewXP)
	assert.Equal(t, 2, resp.NewLevel)

	resp, err = engine.ClaimBounty(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, resp.AlreadyClaimed)
	assert.Equal(t, int64(115), testhelpers.Stats(t, store, "u1").XP)

	clock.Advance(12 * time.Hour)
	resp, err = engine.ClaimBounty(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, resp.AlreadyClaimed)
	assert.Equal(t, "2026-03-02", resp.Day)
	assert.Equal(t, int64(140), testhelpers.Stats(t, store, "u1").XP)
}

func TestClaimBountyUnknownUser(t *testing.T) {
	_, _, engine := setup(t)
	_, err := engine.ClaimBounty(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestSyncUserCreatesRecords(t *testing.T) {
	store, _, engine := setup(t)
	ctx := context.Background()

	resp, err := engine.SyncUser(ctx, "new", "")
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.True(t, resp.ProfileUpdated)
	assert.Equal(t, 1, resp.Level)

	assert.Equal(t, "Adventurer", testhelpers.Profile(t, store, "new").DisplayName)
	assert.Equal(t, models.DefaultReliabilityScore, testhelpers.Stats(t, store, "new").ReliabilityScore)

	resp, err = engine.SyncUser(ctx, "new", "")
	require.NoError(t, err)
	assert.False(t, resp.Created)
	assert.False(t, resp.ProfileUpdated)
}

func TestSyncUserRepairsDivergence(t *testing.T) {
	store, _, engine := setup(t)
	ctx := context.Background()
	write(t, store, repositories.UserStatsCollection, "u1", models.UserStats{ID: "u1", XP: 300, Level: 1, ReliabilityScore: 100})
	write(t, store, repositories.UsersCollection, "u1", models.UserProfile{ID: "u1", DisplayName: "Ana", XP: 100, Level: 2})

	resp, err := engine.SyncUser(ctx, "u1", "ignored")
	require.NoError(t, err)
	assert.True(t, resp.ProfileUpdated)
	assert.Equal(t, 3, resp.Level)

	profile := testhelpers.Profile(t, store, "u1")
	assert.Equal(t, "Ana", profile.DisplayName)
	assert.Equal(t, int64(300), profile.XP)
	assert.Equal(t, 3, profile.Level)
	assert.Equal(t, 3, testhelpers.Stats(t, store, "u1").Level)

	resp, err = engine.SyncUser(ctx, "u1", "")
	require.NoError(t, err)
	assert.False(t, resp.ProfileUpdated)
}

func TestSyncUserFixesStaleProfileLevel(t *testing.T) {
	store, _, engine := setup(t)
	write(t, store, repositories.UserStatsCollection, "u1", models.UserStats{ID: "u1", XP: 100, Level: 2, ReliabilityScore: 100})
	write(t, store, repositories.UsersCollection, "u1", models.UserProfile{ID: "u1", XP: 500, Level: 1})

	resp, err := engine.SyncUser(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.True(t, resp.ProfileUpdated)
	assert.Equal(t, leveling.LevelFromXP(500), testhelpers.Profile(t, store, "u1").Level)
	assert.Equal(t, int64(500), testhelpers.Profile(t, store, "u1").XP)
}

func TestLevelAlwaysMatchesXP(t *testing.T) {
	store, clock, engine := setup(t)
	ctx := context.Background()
	members := []string{"r", "u1", "u2"}
	seedSquad(t, store, "q1", members...)
	seedSquad(t, store, "q2", members...)

	for _, q := range []string{"q1", "q2"} {
		for _, reviewer := range members {
			reviews := map[string][]models.VibeTag{}
			for _, m := range members {
				reviews[m] = []models.VibeTag{models.TagLeader, models.TagFunny, models.TagIntellectual}
			}
			_, err := engine.SubmitVibeCheck(ctx, reviewer, &models.VibeCheckRequest{QuestID: q, Reviews: reviews})
			require.NoError(t, err)
		}
	}
	for day := 0; day < 3; day++ {
		for _, m := range members {
			_, err := engine.ClaimBounty(ctx, m)
			require.NoError(t, err)
		}
		clock.Advance(24 * time.Hour)
	}

	for _, m := range members {
		stats := testhelpers.Stats(t, store, m)
		profile := testhelpers.Profile(t, store, m)
		// 2 quests x (50 bonus + 2 peers x 15) + 3 x 25 bounty
		assert.Equal(t, int64(235), stats.XP, m)
		assert.Equal(t, leveling.LevelFromXP(stats.XP), stats.Level, m)
		assert.Equal(t, stats.XP, profile.XP, m)
		assert.Equal(t, stats.Level, profile.Level, m)
		assert.Equal(t, stats.XP, stats.WeeklyXP, m)
	}
}
