package manager

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes manager errors.
type ErrorCode string

const (
	// CodeSubmissionRejected: quota exceeded, duplicate name, invalid
	// definition or compile failure.
	CodeSubmissionRejected ErrorCode = "SUBMISSION_REJECTED"

	// CodeNotFound: unknown command on update, delete, execute or show.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodePersistenceFailure: the store was unreachable or rejected the request.
	CodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	// CodeMarshalError: a value could not cross the host/guest boundary.
	CodeMarshalError ErrorCode = "MARSHAL_ERROR"

	// CodeGuestRuntimeError: guest code failed to compile or raised an error.
	CodeGuestRuntimeError ErrorCode = "GUEST_RUNTIME_ERROR"

	// CodePlatformSyncError: publishing the grouping command failed.
	CodePlatformSyncError ErrorCode = "PLATFORM_SYNC_ERROR"
)

// Error is returned by every Manager operation. The underlying cause stays
// reachable through errors.As / errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	Tenant  string
	Command string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Tenant != "" && e.Command != "":
		msg += fmt.Sprintf(" (tenant=%s, command=%s)", e.Tenant, e.Command)
	case e.Tenant != "":
		msg += fmt.Sprintf(" (tenant=%s)", e.Tenant)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsSubmissionRejected reports whether err is a rejected register or update.
func IsSubmissionRejected(err error) bool { return hasCode(err, CodeSubmissionRejected) }

// IsNotFound reports whether err names an unknown command.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsPersistenceFailure reports whether err came from the store.
func IsPersistenceFailure(err error) bool { return hasCode(err, CodePersistenceFailure) }

// IsMarshalError reports whether err is a host/guest conversion failure.
func IsMarshalError(err error) bool { return hasCode(err, CodeMarshalError) }

// IsGuestRuntimeError reports whether err was raised by guest code.
func IsGuestRuntimeError(err error) bool { return hasCode(err, CodeGuestRuntimeError) }

// IsPlatformSyncError reports whether publishing the grouping command failed.
func IsPlatformSyncError(err error) bool { return hasCode(err, CodePlatformSyncError) }

func newError(code ErrorCode, tenant, command string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Tenant:  tenant,
		Command: command,
		Err:     err,
	}
}
