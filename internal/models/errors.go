package models

import "errors"

// Domain errors returned by the quest and reward services.
var (
	ErrQuestNotFound     = errors.New("quest not found")
	ErrQuestArchived     = errors.New("quest has been archived")
	ErrQuestFull         = errors.New("quest is full")
	ErrInvalidCode       = errors.New("invalid quest code")
	ErrNotMember         = errors.New("user is not a participant of this quest")
	ErrNotHost           = errors.New("only the host can do this")
	ErrHostCannotLeave   = errors.New("the host cannot leave their own quest")
	ErrQuestNotJoinable  = errors.New("quest is no longer accepting participants")
	ErrQuestClosed       = errors.New("quest is closed")
	ErrQuestNotStarted   = errors.New("quest has not started yet")
	ErrInvalidTransition = errors.New("invalid quest status transition")
	ErrUserNotFound      = errors.New("user not found")
	ErrMissingProof      = errors.New("completion proof requires a location match or a photo")
	ErrNotVerified       = errors.New("quest completion has not been verified")
)
