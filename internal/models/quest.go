package models

import (
	"slices"
	"time"
)

type QuestStatus string

const (
	QuestOpen      QuestStatus = "open"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestCancelled QuestStatus = "cancelled"
)

func (s QuestStatus) Valid() bool {
	switch s {
	case QuestOpen, QuestActive, QuestCompleted, QuestCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s QuestStatus) Terminal() bool {
	return s == QuestCompleted || s == QuestCancelled
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Quest is a scheduled, capacity-bounded group activity.
type Quest struct {
	ID           string      `bson:"_id,omitempty" json:"id"`
	Title        string      `bson:"title" json:"title"`
	Description  string      `bson:"description,omitempty" json:"description,omitempty"`
	Location     string      `bson:"location,omitempty" json:"location,omitempty"`
	Status       QuestStatus `bson:"status" json:"status"`
	Difficulty   Difficulty  `bson:"difficulty" json:"difficulty"`
	StartTime    time.Time   `bson:"startTime" json:"startTime"`
	MaxPlayers   int         `bson:"maxPlayers" json:"maxPlayers"`
	HostID       string      `bson:"hostId" json:"hostId"`
	Participants []string    `bson:"participants,omitempty" json:"participants"`
	CompletedBy  []string    `bson:"completedBy,omitempty" json:"completedBy"`
	Code         string      `bson:"code,omitempty" json:"-"` // secret room code, never serialized to clients
	CreatedAt    time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time   `bson:"updatedAt" json:"updatedAt"`
}

func (q *Quest) IsParticipant(userID string) bool {
	return slices.Contains(q.Participants, userID)
}

func (q *Quest) HasCompleted(userID string) bool {
	return slices.Contains(q.CompletedBy, userID)
}

func (q *Quest) IsFull() bool {
	return len(q.Participants) >= q.MaxPlayers
}

func (q *Quest) RequiresCode() bool {
	return q.Code != ""
}

// QuestMember is the per-user membership projection of a quest.
type QuestMember struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	QuestID     string    `bson:"questId" json:"questId"`
	UserID      string    `bson:"userId" json:"userId"`
	DisplayName string    `bson:"displayName,omitempty" json:"displayName,omitempty"`
	AvatarURL   string    `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Level       int       `bson:"level" json:"level"`
	JoinedAt    time.Time `bson:"joinedAt" json:"joinedAt"`
}

// Verification is a user's completion proof for a quest.
type Verification struct {
	ID              string     `bson:"_id,omitempty" json:"id"`
	QuestID         string     `bson:"questId" json:"questId"`
	UserID          string     `bson:"userId" json:"userId"`
	Completed       bool       `bson:"completed" json:"completed"`
	Rewarded        bool       `bson:"rewarded" json:"rewarded"`
	LocationMatched bool       `bson:"locationMatched" json:"locationMatched"`
	PhotoURL        string     `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	XPAwarded       int64      `bson:"xpAwarded" json:"xpAwarded"`
	VerifiedAt      time.Time  `bson:"verifiedAt" json:"verifiedAt"`
	RewardedAt      *time.Time `bson:"rewardedAt,omitempty" json:"rewardedAt,omitempty"`
}

// Proof is the evidence a participant submits to finalize a quest.
type Proof struct {
	LocationMatched bool
	PhotoURL        string
}

func (p Proof) Present() bool {
	return p.LocationMatched || p.PhotoURL != ""
}
