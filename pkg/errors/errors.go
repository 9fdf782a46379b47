package errors

import "fmt"

// Kind classifies the errors a cleanup run can encounter
type Kind string

const (
	KindAuthentication   Kind = "authentication"
	KindScanIncomplete   Kind = "scan_incomplete"
	KindTransientRemoval Kind = "transient_removal"
	KindFatalRemoval     Kind = "fatal_removal"
	KindCircuitBreaker   Kind = "circuit_breaker"
	KindArtifactWrite    Kind = "artifact_write"
	KindBrowser          Kind = "browser"
	KindUnknown          Kind = "unknown"
)

// Error is a run error carrying its taxonomy kind
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind wrapping an underlying cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsRetryable reports whether an error of this kind should be retried.
// Transient removal and generic browser errors are worth another attempt;
// everything else either aborts the run or is already final.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindTransientRemoval, KindBrowser:
		return true
	case KindAuthentication, KindFatalRemoval, KindCircuitBreaker, KindArtifactWrite:
		return false
	default:
		return false
	}
}

// IsFatal reports whether an error of this kind must abort the whole run
func IsFatal(kind Kind) bool {
	switch kind {
	case KindAuthentication, KindArtifactWrite:
		return true
	default:
		return false
	}
}
