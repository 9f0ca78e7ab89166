package models

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Code + ": " + e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type JoinQuestResponse struct {
	Quest         *Quest `json:"quest"`
	AlreadyMember bool   `json:"alreadyMember"`
}

type LeaveQuestResponse struct {
	QuestID          string `json:"questId"`
	Penalized        bool   `json:"penalized"`
	Penalty          int    `json:"penalty,omitempty"`
	ReliabilityScore int    `json:"reliabilityScore,omitempty"`
}

type FinalizeQuestResponse struct {
	Verification   *Verification `json:"verification"`
	AlreadyClaimed bool          `json:"alreadyClaimed"`
	XPAwarded      int64         `json:"xpAwarded"`
}

// UserReward is the XP granted to one user by a settlement.
type UserReward struct {
	UserID   string `json:"userId"`
	XP       int64  `json:"xp"`
	NewXP    int64  `json:"newXp"`
	NewLevel int    `json:"newLevel"`
}

type VibeCheckResponse struct {
	QuestID        string       `json:"questId"`
	Rewards        []UserReward `json:"rewards"`
	ReviewerBonus  int64        `json:"reviewerBonus"`
	AlreadyClaimed bool         `json:"alreadyClaimed"`
}

type BountyClaimResponse struct {
	Day            string `json:"day"`
	XP             int64  `json:"xp"`
	AlreadyClaimed bool   `json:"alreadyClaimed"`
	NewXP          int64  `json:"newXp"`
	NewLevel       int    `json:"newLevel"`
}

type SyncUserResponse struct {
	UserID         string `json:"userId"`
	XP             int64  `json:"xp"`
	Level          int    `json:"level"`
	ProfileUpdated bool   `json:"profileUpdated"`
	Created        bool   `json:"created"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
	Me      *LeaderboardEntry  `json:"me,omitempty"`
}

type ActivityResponse struct {
	Items []ActivityEntry `json:"items"`
}
