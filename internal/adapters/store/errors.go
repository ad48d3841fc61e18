package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrRaceLost          = errors.New("conditional update lost")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotAssignee       = errors.New("not the assigned helper")
	ErrAlreadyVoted      = errors.New("identity already voted")
)
