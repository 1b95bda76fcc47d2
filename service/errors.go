package service

import (
	"errors"
)

// Expected control-flow outcomes of permission resolution. These are not
// faults: callers branch on them to pick the user-visible response.
var (
	// ErrPermissionDenied means the actor may not invoke the command
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnknownCommand means the command name is not in the registry
	ErrUnknownCommand = errors.New("unknown command")
)
