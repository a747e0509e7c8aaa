package script

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Phase identifies where a guest error was raised.
type Phase string

const (
	PhaseCompile Phase = "compile"
	PhaseRun     Phase = "run"
)

// ErrAbandoned is returned by Call when the host stopped waiting for a guest
// call because of a forced restart. The guest itself is not interrupted.
var ErrAbandoned = errors.New("execution abandoned by forced restart")

// ErrRuntimeBusy is returned when a call is attempted on a runtime that is
// still running an abandoned call or has been retired.
var ErrRuntimeBusy = errors.New("guest runtime is busy or retired")

// ErrUnknownCommand is returned by Compile for names missing from the registry.
var ErrUnknownCommand = errors.New("unknown command")

// GuestError carries a compile or runtime error raised by guest code.
type GuestError struct {
	Phase   Phase
	Label   string // chunk label, "<origin>:<name>"
	Message string // the guest's own message
	Err     error
}

func (e *GuestError) Error() string {
	return fmt.Sprintf("%s error in %s: %s", e.Phase, e.Label, e.Message)
}

func (e *GuestError) Unwrap() error {
	return e.Err
}

// IsGuestError reports whether err is or wraps a *GuestError.
func IsGuestError(err error) bool {
	var ge *GuestError
	return errors.As(err, &ge)
}

// runError converts an error returned by a protected Lua call.
func runError(label string, err error) *GuestError {
	msg := err.Error()
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		if s, ok := apiErr.Object.(lua.LString); ok {
			msg = string(s)
		} else {
			msg = apiErr.Object.String()
		}
	}
	return &GuestError{Phase: PhaseRun, Label: label, Message: msg, Err: err}
}
