package interpreter

import (
	"errors"
	"fmt"
)

// Internal usage errors. These mean the embedding program misused the
// interpreter, never that a script failed, and all match ErrInternal.
var (
	ErrInternal    = errors.New("internal interpreter error")
	ErrWrongThread = fmt.Errorf("%w: execution context used from a thread that does not own it", ErrInternal)
	ErrNoFrame     = fmt.Errorf("%w: no call frame in execution context", ErrInternal)
	ErrNoContext   = fmt.Errorf("%w: no execution context for this thread", ErrInternal)
	ErrDisposed    = fmt.Errorf("%w: interpreter disposed", ErrInternal)
	ErrNilCommand  = fmt.Errorf("%w: nil command", ErrInternal)
)

// Script-level errors, always delivered wrapped in a *ScriptError.
var (
	ErrUnknownCommand = errors.New("invalid command name")
	ErrCommandExists  = errors.New("command already exists")
	ErrNoSuchVariable = errors.New("no such variable")
	ErrWrongArgs      = errors.New("wrong # args")
	ErrBadLevel       = errors.New("bad level")
	ErrTooDeep        = errors.New("too many nested evaluations")
	ErrNotInProcedure = errors.New("return outside of a procedure")
)

// ScriptError is an error a script can observe and handle.
type ScriptError struct {
	Command string
	Err     error
	Detail  string
}

func (e *ScriptError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	if e.Command == "" {
		return msg
	}

	return fmt.Sprintf("%s: %s", e.Command, msg)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func scriptError(command string, err error, format string, args ...any) *ScriptError {
	return &ScriptError{Command: command, Err: err, Detail: fmt.Sprintf(format, args...)}
}
