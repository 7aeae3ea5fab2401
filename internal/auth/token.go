package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/todolist/internal/model"
)

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload: the account id and email.
type Claims struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	timeNow func() time.Time
}

// NewIssuer creates an Issuer. ttl is the lifetime of each issued token.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		timeNow: time.Now,
	}
}

// Issue returns a signed token for u.
func (i *Issuer) Issue(u model.User) (string, error) {
	now := i.timeNow()
	claims := Claims{
		ID:    u.ID,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the identity it carries.
func (i *Issuer) Verify(token string) (model.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.timeNow),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return model.User{ID: claims.ID, Email: claims.Email}, nil
}
