package models

import "time"

type ActivityType string

const (
	ActivityQuestCreated      ActivityType = "quest_created"
	ActivityQuestJoined       ActivityType = "quest_joined"
	ActivityQuestCompleted    ActivityType = "quest_completed"
	ActivityVibeCheckComplete ActivityType = "vibe_check_completed"
	ActivityBountyClaimed     ActivityType = "bounty_claimed"
)

// ActivityEntry is an append-only global feed record.
type ActivityEntry struct {
	ID        string       `bson:"_id,omitempty" json:"id"`
	Type      ActivityType `bson:"type" json:"type"`
	UserID    string       `bson:"userId" json:"userId"`
	QuestID   string       `bson:"questId,omitempty" json:"questId,omitempty"`
	Message   string       `bson:"message" json:"message"`
	XP        int64        `bson:"xp,omitempty" json:"xp,omitempty"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
}
