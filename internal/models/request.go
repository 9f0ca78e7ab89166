package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxTagsPerUser   = 6
	MaxReviewedUsers = 20
	MaxTitleLength   = 120
	MaxCodeLength    = 32
	MinQuestPlayers  = 2
	MaxQuestPlayers  = 50
)

func validationError(details []ValidationErrorDetail) error {
	if len(details) == 0 {
		return nil
	}
	return &ErrorResponse{
		Code:    "validation_error",
		Message: "Request validation failed",
		Details: details,
	}
}

type CreateQuestRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartTime   time.Time  `json:"startTime"`
	MaxPlayers  int        `json:"maxPlayers"`
	Difficulty  Difficulty `json:"difficulty"`
	Code        string     `json:"code"`
}

func (r *CreateQuestRequest) Validate() error {
	var details []ValidationErrorDetail
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		details = append(details, ValidationErrorDetail{Field: "title", Reason: "required"})
	} else if len(r.Title) > MaxTitleLength {
		details = append(details, ValidationErrorDetail{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)})
	}
	if r.StartTime.IsZero() {
		details = append(details, ValidationErrorDetail{Field: "startTime", Reason: "required"})
	}
	if r.MaxPlayers < MinQuestPlayers || r.MaxPlayers > MaxQuestPlayers {
		details = append(details, ValidationErrorDetail{Field: "maxPlayers", Reason: fmt.Sprintf("must be between %d and %d", MinQuestPlayers, MaxQuestPlayers)})
	}
	if r.Difficulty == "" {
		r.Difficulty = DifficultyMedium
	}
	if !r.Difficulty.Valid() {
		details = append(details, ValidationErrorDetail{Field: "difficulty", Reason: "must be one of: easy, medium, hard"})
	}
	if len(r.Code) > MaxCodeLength {
		details = append(details, ValidationErrorDetail{Field: "code", Reason: fmt.Sprintf("must be at most %d characters", MaxCodeLength)})
	}
	return validationError(details)
}

type JoinQuestRequest struct {
	QuestID string `json:"questId"`
	Code    string `json:"code"`
}

func (r *JoinQuestRequest) Validate() error {
	if strings.TrimSpace(r.QuestID) == "" {
		return validationError([]ValidationErrorDetail{{Field: "questId", Reason: "required"}})
	}
	return nil
}

type LeaveQuestRequest struct {
	QuestID string `json:"questId"`
}

func (r *LeaveQuestRequest) Validate() error {
	if strings.TrimSpace(r.QuestID) == "" {
		return validationError([]ValidationErrorDetail{{Field: "questId", Reason: "required"}})
	}
	return nil
}

type FinalizeQuestRequest struct {
	QuestID         string `json:"questId"`
	LocationMatched bool   `json:"locationMatched"`
	PhotoURL        string `json:"photoUrl"`
}

func (r *FinalizeQuestRequest) Validate() error {
	var details []ValidationErrorDetail
	if strings.TrimSpace(r.QuestID) == "" {
		details = append(details, ValidationErrorDetail{Field: "questId", Reason: "required"})
	}
	if !r.Proof().Present() {
		details = append(details, ValidationErrorDetail{Field: "proof", Reason: "locationMatched or photoUrl is required"})
	}
	return validationError(details)
}

func (r *FinalizeQuestRequest) Proof() Proof {
	return Proof{LocationMatched: r.LocationMatched, PhotoURL: strings.TrimSpace(r.PhotoURL)}
}

type TransitionQuestRequest struct {
	QuestID string      `json:"questId"`
	Status  QuestStatus `json:"status"`
}

func (r *TransitionQuestRequest) Validate() error {
	var details []ValidationErrorDetail
	if strings.TrimSpace(r.QuestID) == "" {
		details = append(details, ValidationErrorDetail{Field: "questId", Reason: "required"})
	}
	if !r.Status.Valid() {
		details = append(details, ValidationErrorDetail{Field: "status", Reason: "must be one of: open, active, completed, cancelled"})
	}
	return validationError(details)
}

// VibeCheckRequest maps each reviewed user to the tags the reviewer gave them.
type VibeCheckRequest struct {
	QuestID string               `json:"questId"`
	Reviews map[string][]VibeTag `json:"reviews"`
}

func (r *VibeCheckRequest) Validate() error {
	var details []ValidationErrorDetail
	if strings.TrimSpace(r.QuestID) == "" {
		details = append(details, ValidationErrorDetail{Field: "questId", Reason: "required"})
	}
	if r.Reviews == nil {
		details = append(details, ValidationErrorDetail{Field: "reviews", Reason: "required"})
	}
	if len(r.Reviews) > MaxReviewedUsers {
		details = append(details, ValidationErrorDetail{Field: "reviews", Reason: fmt.Sprintf("at most %d users can be reviewed", MaxReviewedUsers)})
	}
	for userID, tags := range r.Reviews {
		field := "reviews." + userID
		if strings.TrimSpace(userID) == "" {
			details = append(details, ValidationErrorDetail{Field: "reviews", Reason: "user id must not be empty"})
			continue
		}
		if len(tags) > MaxTagsPerUser {
			details = append(details, ValidationErrorDetail{Field: field, Reason: fmt.Sprintf("at most %d tags per user", MaxTagsPerUser)})
			continue
		}
		seen := make(map[VibeTag]bool, len(tags))
		for _, tag := range tags {
			if !tag.Valid() {
				details = append(details, ValidationErrorDetail{Field: field, Reason: fmt.Sprintf("unknown tag %q", tag)})
				continue
			}
			if seen[tag] {
				details = append(details, ValidationErrorDetail{Field: field, Reason: fmt.Sprintf("duplicate tag %q", tag)})
			}
			seen[tag] = true
		}
	}
	return validationError(details)
}
