package engine

import (
	"errors"
	"fmt"
)

// ErrSessionBusy is returned when Step is invoked while another step is still
// in flight on the same conversation. Concurrent invocation on one session is
// a programming error; each session is strictly sequential.
var ErrSessionBusy = errors.New("conversation step already in flight")

// ErrConversationTerminated is returned by Step after the conversation has
// reached its terminal state. Termination is absorbing: no container mutates
// once this error is returned.
var ErrConversationTerminated = errors.New("conversation already terminated")

// CompletionUnavailableError reports that the completion capability failed for
// every attempt of the bounded retry loop. Session state is exactly as it was
// before the step began; the caller may retry the whole turn.
type CompletionUnavailableError struct {
	Attempts int
	Err      error
}

func (e *CompletionUnavailableError) Error() string {
	return fmt.Sprintf("completion unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CompletionUnavailableError) Unwrap() error { return e.Err }
