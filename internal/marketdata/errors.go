package marketdata

import "fmt"

// Kind classifies provider failures so callers can decide between
// retrying, backing off and giving up.
type Kind int

const (
	KindFetch Kind = iota
	KindParse
	KindRateLimit
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Err      error

	retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("marketdata: %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Rate limits and
// server-side errors are worth another attempt; client errors and
// malformed payloads are not.
func (e *Error) Retryable() bool { return e.retryable }

func newError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

func newRetryableError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err, retryable: true}
}
