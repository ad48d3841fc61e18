// Package auth verifies the bearer credential supplied at connect time.
//
// Verification happens before any event is accepted; failure terminates
// the connection attempt with no partial state committed. The signing
// secret is injected configuration, never a literal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/huddle/internal/domain/model"
)

// Sentinel kinds for auth errors.
var (
	ErrNoSecret     = errors.New("auth secret not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the public profile fields inside the token. Nothing
// secret travels here.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	ExternalID  string `json:"ext,omitempty"`
	Department  string `json:"dept,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier. An empty secret is refused so a
// misconfigured deployment cannot silently accept everyone.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses and validates the token and returns the public profile it
// carries.
func (v *Verifier) Verify(token string) (model.Profile, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.Profile{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return model.Profile{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return model.Profile{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
		ExternalID:  claims.ExternalID,
		Department:  claims.Department,
	}, nil
}

// Sign mints a token for the profile. Used by tests and the traffic
// simulator; production tokens come from the identity provider.
func (v *Verifier) Sign(profile model.Profile, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		DisplayName: profile.DisplayName,
		ExternalID:  profile.ExternalID,
		Department:  profile.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
