package app

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrUnknownConnection  = errors.New("unknown connection")
	ErrConnectionMismatch = errors.New("connection belongs to another identity")
)
