// Package jwtsession encodes server-side session artifacts as HS256-signed JWTs.
package jwtsession

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

// ErrInvalidArtifact is returned for artifacts that fail signature, expiry or shape checks.
var ErrInvalidArtifact = errors.New("invalid session artifact")

const issuer = "campus-portal"

// Claims is the signed payload of a session artifact.
type Claims struct {
	jwt.RegisteredClaims

	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Codec signs and verifies session artifacts with a shared secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a Codec. The secret must be non-empty.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Encode signs sess. The session id becomes the jti claim and the principal id the subject.
func (c *Codec) Encode(sess domainauth.Session) (string, error) {
	if sess.ID == "" {
		return "", errors.New("session ID cannot be empty")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Principal.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Role:        string(sess.Principal.Role),
		AccessToken: sess.Principal.AccessToken,
		Email:       sess.Principal.Email,
		Name:        sess.Principal.Name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session artifact: %w", err)
	}
	return signed, nil
}

// Decode verifies artifact and returns the session it carries. Claims are copied unchanged.
func (c *Codec) Decode(artifact string) (domainauth.Session, error) {
	if artifact == "" {
		return domainauth.Session{}, ErrInvalidArtifact
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(artifact, &claims, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if claims.ID == "" {
		return domainauth.Session{}, fmt.Errorf("%w: missing jti", ErrInvalidArtifact)
	}

	sess := domainauth.Session{
		ID: claims.ID,
		Principal: domainauth.Principal{
			ID:          claims.Subject,
			Role:        domainauth.Role(claims.Role),
			AccessToken: claims.AccessToken,
			Email:       claims.Email,
			Name:        claims.Name,
		},
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

func (c *Codec) key(_ *jwt.Token) (any, error) {
	return c.secret, nil
}
