package votes

import (
	"errors"
	"fmt"
)

// User-facing vote rejections. These cross the module boundary and are
// rendered as button-click feedback.
var (
	ErrAlreadyVoted = errors.New("user already voted on this post")
	ErrNotEligible  = errors.New("user is not a member of the channel")
	ErrFrozen       = errors.New("voting is closed for this post")
)

// ErrTargetGone is reported by renderers when the post being updated no
// longer exists. It is logged and swallowed, never propagated.
var ErrTargetGone = errors.New("display target no longer exists")

// OracleErrorKind classifies failures of the membership directory lookup.
type OracleErrorKind int

const (
	// KindUnavailable is a transient failure, retried with backoff.
	KindUnavailable OracleErrorKind = iota
	// KindPermissionDenied means the bot lacks the rights to query
	// membership. The vote fails closed, but operators need to see this
	// so they can fix the bot's permissions.
	KindPermissionDenied
	// KindUnknownSubject means the channel or user does not exist as far
	// as the directory is concerned. Also fails closed.
	KindUnknownSubject
)

func (k OracleErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnknownSubject:
		return "unknown_subject"
	default:
		return "unavailable"
	}
}

// OracleError wraps a membership lookup failure with its classification.
type OracleError struct {
	Kind OracleErrorKind
	Err  error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("membership lookup failed (%s): %s", e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// OracleErrKind extracts the classification from err, defaulting to
// KindUnavailable when err is not an OracleError.
func OracleErrKind(err error) OracleErrorKind {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnavailable
}
