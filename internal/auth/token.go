// ABOUTME: Dashboard bearer tokens for the HTTP API, the push channel and the SSE stream
// ABOUTME: HS256 JWTs minted by `status-gateway token`, scoped by issuer and audience

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest accepted HS256 secret in bytes.
const MinSecretLength = 32

// Issuer and Audience are stamped into every dashboard token and required on
// verify, so a JWT signed with the same secret for another service is refused.
const (
	Issuer   = "status-gateway"
	Audience = "status-dashboard"
)

// clockSkew tolerates small clock differences between the CLI that minted a
// token and the gateway verifying it.
const clockSkew = 30 * time.Second

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrWeakSecret   = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// TokenVerifier resolves a bearer token to the dashboard subject it was
// minted for. BearerMiddleware stores that subject in the request context.
type TokenVerifier interface {
	Verify(tokenString string) (subject string, err error)
}

// DashboardClaims is the payload of a dashboard token. The subject names the
// dashboard or operator, and the ID makes every minted token distinct in logs.
type DashboardClaims struct {
	jwt.RegisteredClaims
}

// JWTVerifier mints and checks dashboard tokens with one shared secret, the
// auth.jwt_secret from the gateway config.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. Secrets shorter than MinSecretLength
// are rejected with ErrWeakSecret.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &JWTVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithAudience(Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry, and
// returns the subject.
func (v *JWTVerifier) Verify(tokenString string) (subject string, err error) {
	var claims DashboardClaims
	_, err = v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return claims.Subject, nil
}

// Generate mints a token for subject that expires after expiresIn.
func (v *JWTVerifier) Generate(subject string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := DashboardClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
