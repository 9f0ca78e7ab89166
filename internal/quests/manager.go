// Package quests owns the quest state machine and every membership change.
// Each mutation is a single document-store transaction.
package quests

import (
	"context"
	"errors"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

// ActivityLog receives feed entries after a transaction commits.
type ActivityLog interface {
	Append(ctx context.Context, entry models.ActivityEntry) (string, error)
}

// CompletionAwarder grants the XP for a verified completion exactly once.
type CompletionAwarder interface {
	AwardCompletion(ctx context.Context, questID, userID string) (int64, error)
}

type Config struct {
	LeavePenalty int           // reliability points lost for a late leave
	LeaveGrace   time.Duration // leaving within this window before start is penalized
}

func DefaultConfig() Config {
	return Config{LeavePenalty: 2, LeaveGrace: time.Hour}
}

type Manager struct {
	store    docstore.Store
	activity ActivityLog
	awarder  CompletionAwarder
	logger   *zap.Logger
	config   Config
	now      func() time.Time
}

func NewManager(store docstore.Store, activity ActivityLog, awarder CompletionAwarder, config Config, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		activity: activity,
		awarder:  awarder,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// SetClock overrides the manager's clock.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func getQuest(ctx context.Context, tx docstore.Tx, questID string) (*models.Quest, error) {
	return repositories.GetQuest(ctx, tx, questID)
}

func (m *Manager) record(ctx context.Context, entry models.ActivityEntry) {
	if m.activity == nil {
		return
	}
	if _, err := m.activity.Append(ctx, entry); err != nil {
		m.logger.Warn("failed to append activity", zap.String("type", string(entry.Type)), zap.Error(err))
	}
}

func observe(operation string, err error) {
	metrics.RecordQuestOperation(operation, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case docstore.Retriable(err):
		return "retriable"
	case errors.Is(err, models.ErrQuestNotFound), errors.Is(err, models.ErrQuestArchived),
		errors.Is(err, models.ErrQuestFull), errors.Is(err, models.ErrInvalidCode),
		errors.Is(err, models.ErrNotMember), errors.Is(err, models.ErrNotHost),
		errors.Is(err, models.ErrHostCannotLeave), errors.Is(err, models.ErrQuestNotJoinable),
		errors.Is(err, models.ErrQuestClosed), errors.Is(err, models.ErrQuestNotStarted),
		errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrMissingProof),
		errors.Is(err, models.ErrNotVerified):
		return "rejected"
	default:
		return "error"
	}
}
