package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
)

// GetUserStats reads the private stats record inside tx.
func GetUserStats(ctx context.Context, tx docstore.Tx, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := tx.Get(ctx, UserStatsCollection, userID, &stats)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: stats for %s", models.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("read stats %s: %w", userID, err)
	}
	stats.ID = userID
	return &stats, nil
}

// GetUserProfile reads the public profile inside tx.
func GetUserProfile(ctx context.Context, tx docstore.Tx, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := tx.Get(ctx, UsersCollection, userID, &profile)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: profile for %s", models.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", userID, err)
	}
	profile.ID = userID
	return &profile, nil
}

// Optional turns a missing-user error into a nil result.
func Optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, nil
	}
	return v, err
}
