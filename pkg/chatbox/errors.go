package chatbox

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoSession is returned when a remote turn is attempted without a session handle.
	ErrNoSession = errors.New("no active chat session")
	// ErrTurnInProgress is returned when a submission arrives while a remote turn is streaming.
	ErrTurnInProgress = errors.New("a chat turn is already in progress")
	// ErrWidgetClosed is returned by operations on a torn-down widget.
	ErrWidgetClosed = errors.New("chat widget has been torn down")
)

// InitError reports a failed session bootstrap. It is fatal to widget activation.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("chat initialization failed: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// HistoryError reports a failed history fetch. Callers treat it as "no history".
type HistoryError struct {
	Err error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("chat history unavailable: %v", e.Err)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// ChatError reports a failed chat turn. Status is the HTTP status when the
// server answered, zero otherwise.
type ChatError struct {
	Status int
	Err    error
}

func (e *ChatError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("chat request failed (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("chat request failed: %v", e.Err)
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// FrameParseError reports a stream frame whose payload is not valid JSON.
type FrameParseError struct {
	Payload string
	Err     error
}

func (e *FrameParseError) Error() string {
	return fmt.Sprintf("error parsing stream frame %q: %v", e.Payload, e.Err)
}

func (e *FrameParseError) Unwrap() error {
	return e.Err
}
