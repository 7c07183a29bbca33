package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries only registered claims: sub, iat, exp and jti.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for subject, issued at now and valid
// for validityDuration. Every token gets a random jti.
func GenerateToken(subject string, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			ID:        uuid.NewString(),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry as of now and returns the claims.
// Errors wrap common.ErrTokenExpired or common.ErrInvalidToken together with
// the parser's own error, whose text is the detail shown to callers.
func ParseToken(tokenString string, secretKey []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// TokenIssuer mints bearer tokens for authenticated principals.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(p Principal) (string, error) {
	return GenerateToken(p.Name, i.secret, i.ttl, i.now())
}

// TokenVerifier turns a bearer token back into a Principal.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret, now: time.Now}
}

func (v *TokenVerifier) Verify(token string) (Principal, error) {
	claims, err := ParseToken(token, v.secret, v.now())
	if err != nil {
		return Principal{}, err
	}
	return NewPrincipal(claims.Subject), nil
}
