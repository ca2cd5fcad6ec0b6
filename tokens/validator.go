package tokens

import (
	"fmt"
)

// Outcome is the tagged result of inspecting a token for a given use
type Outcome struct {
	Claims  *Claims
	Failure FailureKind
	Err     error
}

// OK reports whether the token is usable
func (o Outcome) OK() bool {
	return o.Failure == FailureNone && o.Claims != nil
}

// Validator answers whether a token is currently acceptable for a given use.
// Callers that only need a yes/no answer never see why a token was rejected.
type Validator struct {
	codec *Codec
}

// NewValidator creates a Validator backed by codec
func NewValidator(codec *Codec) *Validator {
	return &Validator{codec: codec}
}

// ValidateAccess returns true iff token is an unexpired, correctly signed access token
func (v *Validator) ValidateAccess(token string) bool {
	return v.Inspect(token, KindAccess).OK()
}

// ValidateRefresh returns true iff token is an unexpired, correctly signed refresh token
func (v *Validator) ValidateRefresh(token string) bool {
	return v.Inspect(token, KindRefresh).OK()
}

// Inspect parses token and checks it against the wanted kind and the current
// time. It never panics; every failure is reported through the outcome.
func (v *Validator) Inspect(token string, want Kind) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Failure: FailureMalformed, Err: fmt.Errorf("panic while parsing token: %v", r)}
		}
	}()

	claims, err := v.codec.Parse(token)
	if err != nil {
		return Outcome{Failure: FailureOf(err), Err: err}
	}

	if claims.Kind != want {
		return Outcome{
			Failure: FailureWrongKind,
			Err:     newParseError(FailureWrongKind, fmt.Errorf("want %s token, got %s", want, claims.Kind)),
		}
	}

	// Parse already rejects expired tokens; checked again against the
	// validator's clock at call time.
	if !v.codec.Now().Before(claims.ExpiresAtTime()) {
		return Outcome{Failure: FailureExpired, Err: ErrExpired}
	}

	return Outcome{Claims: claims}
}
