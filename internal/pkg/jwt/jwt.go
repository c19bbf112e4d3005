package jwt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long a sign-in token stays valid.
const DefaultTTL = 30 * 24 * time.Hour

const (
	defaultSecret = "noted-secret-change-me"
	issuer        = "noted"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload; the user id is duplicated in "sub".
type Claims struct {
	UserID string `json:"uid"`
	jwtlib.RegisteredClaims
}

// Signer issues and verifies HS256 tokens for one secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *Signer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method != jwtlib.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

var (
	mu     sync.RWMutex
	signer = NewSigner(defaultSecret)
)

// SetSecret replaces the process-wide signer; empty secrets are ignored.
func SetSecret(secret string) {
	if secret == "" {
		return
	}
	mu.Lock()
	signer = NewSigner(secret)
	mu.Unlock()
}

func current() *Signer {
	mu.RLock()
	defer mu.RUnlock()
	return signer
}

// Sign issues a token with the process-wide signer.
func Sign(userID string, ttl time.Duration) (string, error) {
	return current().Sign(userID, ttl)
}

// Parse verifies a token with the process-wide signer.
func Parse(raw string) (*Claims, error) {
	return current().Parse(raw)
}
