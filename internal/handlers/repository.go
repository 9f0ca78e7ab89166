package handlers

import (
	"context"

	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
)

type QuestService interface {
	Create(ctx context.Context, hostID string, req *models.CreateQuestRequest) (*models.Quest, error)
	Get(ctx context.Context, questID string) (*models.Quest, error)
	Join(ctx context.Context, questID, userID, code string) (*models.JoinQuestResponse, error)
	Leave(ctx context.Context, questID, userID string) (*models.LeaveQuestResponse, error)
	Finalize(ctx context.Context, questID, userID string, proof models.Proof) (*models.FinalizeQuestResponse, error)
	Transition(ctx context.Context, questID, userID string, to models.QuestStatus) (*models.Quest, error)
}

type RewardService interface {
	SubmitVibeCheck(ctx context.Context, reviewerID string, req *models.VibeCheckRequest) (*models.VibeCheckResponse, error)
	ClaimBounty(ctx context.Context, userID string) (*models.BountyClaimResponse, error)
	SyncUser(ctx context.Context, userID, displayName string) (*models.SyncUserResponse, error)
}

type LeaderboardReader interface {
	Weekly(ctx context.Context) ([]models.LeaderboardEntry, error)
}

type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}
