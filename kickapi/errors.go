package kickapi

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated indicates the credential was missing, expired or
// rejected by Kick.
var ErrUnauthenticated = errors.New("kick credential missing or rejected")

// BootstrapStep identifies which link of the bootstrap chain failed.
type BootstrapStep int

const (
	StepProfile BootstrapStep = iota
	StepChannel
	StepChatConnection
)

func (s BootstrapStep) String() string {
	switch s {
	case StepProfile:
		return "profile"
	case StepChannel:
		return "channel"
	case StepChatConnection:
		return "chat_connection"
	default:
		return "unknown"
	}
}

// BootstrapError wraps a failure of one bootstrap step. It is fatal to
// starting a session and is surfaced to the caller, never retried here.
type BootstrapError struct {
	Step BootstrapStep
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap step %s failed: %v", e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }
