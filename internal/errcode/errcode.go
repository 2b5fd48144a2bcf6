// Package errcode defines the wire error taxonomy every scheduler method
// reports through.
package errcode

import "fmt"

// Code is a wire error code.
type Code int

const (
	Success Code = 0
	Failure Code = 100

	DeadlockDetected Code = 101

	DuplicateOperation              Code = 200
	NotExistingOperation             Code = 201
	MainOperationExplicitlyCreated   Code = 202
	MainOperationExplicitlyStarted   Code = 203
	MainOperationExplicitlyCompleted Code = 204
	OperationNotStarted              Code = 205
	OperationAlreadyStarted          Code = 206
	OperationAlreadyCompleted        Code = 207

	DuplicateResource  Code = 300
	NotExistingResource Code = 301

	ClientAttached    Code = 400
	ClientNotAttached Code = 401

	InternalError    Code = 500
	SchedulerDisabled Code = 501
)

var names = map[Code]string{
	Success:                          "Success",
	Failure:                          "Failure",
	DeadlockDetected:                 "DeadlockDetected",
	DuplicateOperation:               "DuplicateOperation",
	NotExistingOperation:             "NotExistingOperation",
	MainOperationExplicitlyCreated:   "MainOperationExplicitlyCreated",
	MainOperationExplicitlyStarted:   "MainOperationExplicitlyStarted",
	MainOperationExplicitlyCompleted: "MainOperationExplicitlyCompleted",
	OperationNotStarted:              "OperationNotStarted",
	OperationAlreadyStarted:          "OperationAlreadyStarted",
	OperationAlreadyCompleted:        "OperationAlreadyCompleted",
	DuplicateResource:                "DuplicateResource",
	NotExistingResource:              "NotExistingResource",
	ClientAttached:                   "ClientAttached",
	ClientNotAttached:                "ClientNotAttached",
	InternalError:                    "InternalError",
	SchedulerDisabled:                "SchedulerDisabled",
}

// String returns the taxonomy name for the code, or a numeric fallback.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error carries a wire code alongside a human-readable message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// New constructs an Error for code with msg.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf constructs an Error for code with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the wire code from err, defaulting to Failure for any
// error that isn't an *Error (and Success for nil).
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return Failure
}

// Sentinel errors for the taxonomy entries that carry no per-call detail.
var (
	ErrClientAttached    = New(ClientAttached, "a client is already attached to this scheduler")
	ErrClientNotAttached = New(ClientNotAttached, "no client is attached to this scheduler")
	ErrSchedulerDisabled = New(SchedulerDisabled, "scheduler is disabled after a fatal error; call Detach to reset")
	ErrDeadlockDetected  = New(DeadlockDetected, "no operation is enabled but uncompleted operations remain")
)
