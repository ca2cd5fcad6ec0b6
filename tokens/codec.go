package tokens

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// signingMethod is the only algorithm the codec issues or accepts
var signingMethod = jwt.SigningMethodHS512

// Codec issues and parses HS512-signed tokens with a process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Codec
type Option func(*Codec)

// WithIssuer sets the iss claim written on issue and required on parse
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec creates a Codec for the given secret
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(parserOptions...)

	return c, nil
}

// Now returns the codec's notion of the current time
func (c *Codec) Now() time.Time {
	return c.now()
}

// Issue signs a new token for subject. ttl must be a whole number of seconds,
// at least one, because JWT timestamps have second precision.
func (c *Codec) Issue(subject, username string, kind Kind, ttl time.Duration) (string, error) {
	if ttl < time.Second || ttl%time.Second != 0 {
		return "", ErrInvalidTTL
	}
	if subject == "" {
		return "", ErrEmptySubject
	}
	if !kind.IsValid() {
		return "", ErrInvalidKind
	}

	issuedAt := c.now().Truncate(time.Second)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Username: username,
		Kind:     kind,
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature of tokenString and returns its claims.
// Every failure is a *ParseError; expiry is reported separately from
// tampering so the refresh flow can tell them apart.
func (c *Codec) Parse(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, newParseError(FailureMalformed, errors.New("token must have three segments"))
	}

	// A signature segment that does not decode strictly is tampering, not a
	// malformed token.
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return nil, newParseError(FailureInvalidSignature, err)
	}

	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, c.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, newParseError(FailureMalformed, errors.New("token is not valid"))
	}
	if err := claims.checkShape(); err != nil {
		return nil, newParseError(FailureMalformed, err)
	}

	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method == nil || t.Method.Alg() != signingMethod.Alg() {
		return nil, fmt.Errorf("%w: %v", errUnsupportedAlgorithm, t.Header["alg"])
	}
	return c.secret, nil
}

// classify maps jwt library errors onto failure kinds
func classify(err error) *ParseError {
	switch {
	case errors.Is(err, errUnsupportedAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newParseError(FailureUnsupportedAlgorithm, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newParseError(FailureInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newParseError(FailureExpired, err)
	default:
		return newParseError(FailureMalformed, err)
	}
}
