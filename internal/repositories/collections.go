package repositories

import "time"

// Collection names. Per-quest member and verification records live in flat
// collections keyed by "{questId}:{userId}".
const (
	QuestsCollection         = "quests"
	ArchivedQuestsCollection = "archived_quests"
	MembersCollection        = "quest_members"
	VerificationsCollection  = "quest_verifications"
	UsersCollection          = "users"
	UserStatsCollection      = "userStats"
	ActivityCollection       = "global_activity"
	VibeChecksCollection     = "vibe_checks"
	BountyClaimsCollection   = "bounty_claims"
)

func MemberID(questID, userID string) string {
	return questID + ":" + userID
}

func VerificationID(questID, userID string) string {
	return questID + ":" + userID
}

func VibeCheckID(questID, reviewerID string) string {
	return questID + ":" + reviewerID
}

// BountyDay is the UTC calendar day a bounty claim counts against.
func BountyDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func BountyClaimID(userID, day string) string {
	return userID + ":" + day
}
