package replaylib

import "errors"

var (
	// ErrNotFound is returned by a HistorySource when no event matches the
	// requested index or time.
	ErrNotFound = errors.New("no event matches the request")
	// ErrOutOfRange is used when a computed index lies outside [0, count).
	ErrOutOfRange = errors.New("index is outside the timeline")
	// ErrUnreachable is returned when the history source could not be reached.
	ErrUnreachable = errors.New("history source is unreachable")
	// ErrMalformedResponse is returned when the history source answered with
	// data that fails validation.
	ErrMalformedResponse = errors.New("history source returned a malformed response")
	// ErrNoTimeSource is returned by Reconnect when the source cannot report
	// its clock.
	ErrNoTimeSource = errors.New("history source does not report server time")
	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("controller is closed")
)
