package server

import (
	"errors"

	"github.com/creachadair/jrpc2"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

// JSON-RPC error codes for session and history failures.
const (
	CodeSessionClosed = jrpc2.Code(-32001)
	CodeNotFound      = jrpc2.Code(-32002)
	CodeUnavailable   = jrpc2.Code(-32003)
	CodeBadData       = jrpc2.Code(-32004)
	CodeInvalidParams = jrpc2.Code(-32602)
)

// RPCError maps a replaylib error onto a jrpc2 error with a stable code.
// Errors that already carry a code and nil pass through.
func RPCError(err error) error {
	if err == nil {
		return nil
	}
	var je *jrpc2.Error
	if errors.As(err, &je) {
		return err
	}
	code := jrpc2.InternalError
	switch {
	case errors.Is(err, replaylib.ErrClosed):
		code = CodeSessionClosed
	case errors.Is(err, replaylib.ErrNotFound), errors.Is(err, replaylib.ErrOutOfRange):
		code = CodeNotFound
	case errors.Is(err, replaylib.ErrUnreachable), errors.Is(err, replaylib.ErrNoTimeSource):
		code = CodeUnavailable
	case errors.Is(err, replaylib.ErrMalformedResponse):
		code = CodeBadData
	}
	return &jrpc2.Error{Code: code, Message: err.Error()}
}

// InvalidParams builds a -32602 error.
func InvalidParams(msg string) error {
	return &jrpc2.Error{Code: CodeInvalidParams, Message: msg}
}
