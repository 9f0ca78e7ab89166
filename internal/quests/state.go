package quests

import (
	"fmt"
	"slices"

	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
)

// transitions is the only authority on which status changes are legal.
var transitions = map[models.QuestStatus][]models.QuestStatus{
	models.QuestOpen:   {models.QuestActive, models.QuestCancelled},
	models.QuestActive: {models.QuestCompleted, models.QuestCancelled},
}

func CanTransition(from, to models.QuestStatus) bool {
	return slices.Contains(transitions[from], to)
}

func checkTransition(from, to models.QuestStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
	}
	return nil
}
