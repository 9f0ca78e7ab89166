package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore/memstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/leveling"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"
)

// Clock is a settable time source shared by a test store and the services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetupTestStore creates an isolated in-memory store driven by clock.
func SetupTestStore(t *testing.T, clock *Clock) *memstore.Store {
	t.Helper()
	return memstore.New(memstore.WithClock(clock.Now), memstore.WithMaxAttempts(20))
}

// SeedQuest writes quest as-is, filling the fields a real create would set.
func SeedQuest(t *testing.T, store docstore.Store, quest models.Quest) models.Quest {
	t.Helper()
	if quest.Status == "" {
		quest.Status = models.QuestOpen
	}
	if quest.Difficulty == "" {
		quest.Difficulty = models.DifficultyMedium
	}
	if quest.Participants == nil && quest.HostID != "" {
		quest.Participants = []string{quest.HostID}
	}
	mustWrite(t, store, repositories.QuestsCollection, quest.ID, quest)
	return quest
}

// SeedUser writes a stats record and a matching public profile.
func SeedUser(t *testing.T, store docstore.Store, userID string, xp int64) {
	t.Helper()
	level := leveling.LevelFromXP(xp)
	mustWrite(t, store, repositories.UserStatsCollection, userID, models.UserStats{
		ID:               userID,
		XP:               xp,
		Level:            level,
		FeedbackCounts:   models.FeedbackCounts{},
		ReliabilityScore: models.DefaultReliabilityScore,
	})
	mustWrite(t, store, repositories.UsersCollection, userID, models.UserProfile{
		ID:          userID,
		DisplayName: "user " + userID,
		XP:          xp,
		Level:       level,
	})
}

func Stats(t *testing.T, store docstore.Store, userID string) models.UserStats {
	t.Helper()
	var stats models.UserStats
	if err := store.Get(context.Background(), repositories.UserStatsCollection, userID, &stats); err != nil {
		panic(fmt.Sprintf("failed to read stats %s: %v", userID, err))
	}
	return stats
}

func Profile(t *testing.T, store docstore.Store, userID string) models.UserProfile {
	t.Helper()
	var profile models.UserProfile
	if err := store.Get(context.Background(), repositories.UsersCollection, userID, &profile); err != nil {
		panic(fmt.Sprintf("failed to read profile %s: %v", userID, err))
	}
	return profile
}

func Quest(t *testing.T, store docstore.Store, questID string) models.Quest {
	t.Helper()
	var quest models.Quest
	if err := store.Get(context.Background(), repositories.QuestsCollection, questID, &quest); err != nil {
		panic(fmt.Sprintf("failed to read quest %s: %v", questID, err))
	}
	return quest
}

func mustWrite(t *testing.T, store docstore.Store, collection, id string, doc any) {
	t.Helper()
	err := store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, collection, id, doc)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to seed %s/%s: %v", collection, id, err))
	}
}
