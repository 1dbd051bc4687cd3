package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose names an independent signing context. Each purpose gets its own
// secret AND is stamped into the token's audience, so a token minted for one
// purpose can never be coerced into another even if one check is skipped.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeMFAChallenge  Purpose = "mfa_challenge"
	PurposePasswordReset Purpose = "reset_password"
)

// Purposes lists every signing context the codec must be configured with.
var Purposes = []Purpose{PurposeAccess, PurposeRefresh, PurposeMFAChallenge, PurposePasswordReset}

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrNotYetValid    = errors.New("jwtx: token not yet valid")
	ErrIssuer         = errors.New("jwtx: issuer mismatch")
	ErrAudience       = errors.New("jwtx: audience mismatch")
	ErrUnknownPurpose = errors.New("jwtx: unknown purpose")
)

// Codec signs and verifies HS256 tokens across the four purpose-scoped
// signing contexts.
type Codec struct {
	issuer  string
	leeway  time.Duration
	secrets map[Purpose][]byte
}

// NewCodec validates that every purpose has a secret and that no two purposes
// share one, then returns a ready codec.
func NewCodec(issuer string, secrets map[Purpose]string) (*Codec, error) {
	keyed := make(map[Purpose][]byte, len(Purposes))
	seen := make(map[string]Purpose, len(Purposes))

	for _, p := range Purposes {
		secret, ok := secrets[p]
		if !ok || secret == "" {
			return nil, fmt.Errorf("jwtx: missing signing secret for purpose %q", p)
		}
		if prev, dup := seen[secret]; dup {
			return nil, fmt.Errorf("jwtx: purposes %q and %q share a signing secret", prev, p)
		}
		seen[secret] = p
		keyed[p] = []byte(secret)
	}

	return &Codec{
		issuer:  issuer,
		leeway:  30 * time.Second,
		secrets: keyed,
	}, nil
}

// Sign serializes claims under the purpose's secret. The claims' audience
// must already carry the purpose (NewClaims does this).
func (c *Codec) Sign(purpose Purpose, claims Claims) (string, error) {
	secret, ok := c.secrets[purpose]
	if !ok {
		return "", ErrUnknownPurpose
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses and validates a token against the purpose's signing context:
// HS256 only, matching issuer, audience equal to the purpose, and exp/nbf
// within leeway. Returns the decoded claims on success.
func (c *Codec) Verify(purpose Purpose, token string) (Claims, error) {
	secret, ok := c.secrets[purpose]
	if !ok {
		return Claims{}, ErrUnknownPurpose
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(string(purpose)),
		jwt.WithLeeway(c.leeway),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	default:
		return ErrMalformed
	}
}
