package tokens

import (
	"errors"
	"fmt"
)

// FailureKind tags why a token was rejected
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureMalformed
	FailureInvalidSignature
	FailureExpired
	FailureUnsupportedAlgorithm
	FailureWrongKind
)

// String returns a stable name used in logs
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureInvalidSignature:
		return "invalid_signature"
	case FailureExpired:
		return "expired"
	case FailureUnsupportedAlgorithm:
		return "unsupported_algorithm"
	case FailureWrongKind:
		return "wrong_kind"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// ParseError is returned by Codec.Parse and carries the failure kind
type ParseError struct {
	Kind FailureKind
	Err  error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + e.Kind.String()
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches any ParseError of the same kind
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrMalformed            = &ParseError{Kind: FailureMalformed}
	ErrInvalidSignature     = &ParseError{Kind: FailureInvalidSignature}
	ErrExpired              = &ParseError{Kind: FailureExpired}
	ErrUnsupportedAlgorithm = &ParseError{Kind: FailureUnsupportedAlgorithm}
	ErrWrongKind            = &ParseError{Kind: FailureWrongKind}

	// ErrInvalidTTL is returned by Issue for a ttl that is not a positive
	// whole number of seconds
	ErrInvalidTTL = errors.New("token ttl must be a positive whole number of seconds")

	// ErrInvalidKind is returned by Issue for an unknown token kind
	ErrInvalidKind = errors.New("unknown token kind")

	// ErrEmptySubject is returned by Issue when no subject is given
	ErrEmptySubject = errors.New("token subject is required")

	// ErrEmptySecret is returned by NewCodec without a signing secret
	ErrEmptySecret = errors.New("signing secret is required")
)

// FailureOf returns the failure kind carried by err, or FailureNone
func FailureOf(err error) FailureKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if err != nil {
		return FailureMalformed
	}
	return FailureNone
}

func newParseError(kind FailureKind, err error) *ParseError {
	return &ParseError{Kind: kind, Err: err}
}
