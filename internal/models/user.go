package models

import "time"

type VibeTag string

const (
	TagLeader       VibeTag = "leader"
	TagStoryteller  VibeTag = "storyteller"
	TagFunny        VibeTag = "funny"
	TagListener     VibeTag = "listener"
	TagTeamPlayer   VibeTag = "teamplayer"
	TagIntellectual VibeTag = "intellectual"
)

var VibeTags = []VibeTag{TagLeader, TagStoryteller, TagFunny, TagListener, TagTeamPlayer, TagIntellectual}

func (t VibeTag) Valid() bool {
	for _, v := range VibeTags {
		if t == v {
			return true
		}
	}
	return false
}

// FeedbackCounts maps a vibe tag to how often the user received it.
type FeedbackCounts map[VibeTag]int64

// FeedbackCountPath is the dotted document path of the counter for tag.
func FeedbackCountPath(tag VibeTag) string {
	return "feedbackCounts." + string(tag)
}

const DefaultReliabilityScore = 100

// UserProfile is the public projection of a user's progression.
type UserProfile struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	AvatarURL   string    `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	XP          int64     `bson:"xp" json:"xp"`
	Level       int       `bson:"level" json:"level"`
	WeeklyXP    int64     `bson:"weeklyXp" json:"weeklyXp"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserStats is the private record and the source of truth for XP.
type UserStats struct {
	ID               string         `bson:"_id,omitempty" json:"id"`
	XP               int64          `bson:"xp" json:"xp"`
	Level            int            `bson:"level" json:"level"`
	WeeklyXP         int64          `bson:"weeklyXp" json:"weeklyXp"`
	FeedbackCounts   FeedbackCounts `bson:"feedbackCounts,omitempty" json:"feedbackCounts"`
	QuestsCompleted  int64          `bson:"questsCompleted" json:"questsCompleted"`
	ReliabilityScore int            `bson:"reliabilityScore" json:"reliabilityScore"`
	UpdatedAt        time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// VibeCheckRecord marks that a reviewer already settled a vibe check for a quest.
type VibeCheckRecord struct {
	ID         string           `bson:"_id,omitempty" json:"id"`
	QuestID    string           `bson:"questId" json:"questId"`
	ReviewerID string           `bson:"reviewerId" json:"reviewerId"`
	Rewards    map[string]int64 `bson:"rewards" json:"rewards"`
	CreatedAt  time.Time        `bson:"createdAt" json:"createdAt"`
}

// BountyClaim marks a user's daily bounty for one UTC day.
type BountyClaim struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	Day       string    `bson:"day" json:"day"`
	XP        int64     `bson:"xp" json:"xp"`
	ClaimedAt time.Time `bson:"claimedAt" json:"claimedAt"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Level       int    `json:"level"`
	WeeklyXP    int64  `json:"weeklyXp"`
}
