package generator

import "errors"

// ErrorKind classifies a generation failure by who can act on it.
type ErrorKind int

const (
	// KindInput is a malformed or incomplete request.
	KindInput ErrorKind = iota + 1
	// KindCollaborator is a storage failure before the commit point.
	KindCollaborator
	// KindPostCommit is any failure after output started. It cannot be
	// reported to the caller and is only logged.
	KindPostCommit
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindCollaborator:
		return "collaborator"
	case KindPostCommit:
		return "post_commit"
	}
	return "unknown"
}

// Error is returned by every failed generation.
type Error struct {
	Kind    ErrorKind
	State   State
	Message string
	Err     error
}

func (e *Error) Error() string {
	if d := e.Details(); d != "" {
		return e.Message + ": " + d
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Details is the underlying cause, if any, suitable for a client response.
func (e *Error) Details() string {
	if e.Err == nil || e.Err.Error() == e.Message {
		return ""
	}
	return e.Err.Error()
}

// KindOf returns the kind of a generation error, or 0 for other errors.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}
