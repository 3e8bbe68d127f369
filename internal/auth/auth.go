// Package auth holds the password hashing and session token providers used
// by registration, login and the transports.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	userIdClaim = "user-id"
	emailClaim  = "email"
	expClaim    = "exp"

	DefaultTokenExp = time.Hour * 24
)

var ErrInvalidToken = errors.New("invalid token")

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Claims is what a session token identifies.
type Claims struct {
	UserID string
	Email  string
}

type TokenProvider interface {
	Sign(c Claims) (string, error)
	Verify(token string) (Claims, error)
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type JWTProvider struct {
	key []byte
	exp time.Duration
	now func() time.Time
}

func NewJWTProvider(key []byte, exp time.Duration) *JWTProvider {
	if exp <= 0 {
		exp = DefaultTokenExp
	}
	return &JWTProvider{key: key, exp: exp, now: time.Now}
}

func (p *JWTProvider) Exp() time.Duration {
	return p.exp
}

func (p *JWTProvider) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: c.UserID,
		emailClaim:  c.Email,
		expClaim:    p.now().Add(p.exp).Unix(),
	})

	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.key, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}
	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return Claims{}, fmt.Errorf("%w: invalid user id claim", ErrInvalidToken)
	}
	email, _ := claims[emailClaim].(string)

	return Claims{UserID: userId, Email: email}, nil
}
