// Package auth issues and verifies bearer tokens for the HTTP surface.
// Accounts are declared in configuration; tokens are HS256 JWTs.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid token")
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	AccountID string
	Plan      string
}

// Claims is the JWT payload voxscribe issues.
type Claims struct {
	Plan string `json:"plan"`
	jwt.RegisteredClaims
}

// Service authenticates configured accounts and mints session tokens.
type Service struct {
	cfg   config.AuthConfig
	clock func() time.Time
}

func NewService(cfg config.AuthConfig) *Service {
	return &Service{cfg: cfg, clock: time.Now}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Login checks the credentials against configured accounts and returns
// a signed token plus the identity it encodes.
func (s *Service) Login(email, password string) (string, Identity, error) {
	var account *config.AuthAccount
	for i := range s.cfg.Accounts {
		if s.cfg.Accounts[i].Email == email {
			account = &s.cfg.Accounts[i]
			break
		}
	}
	if account == nil || !constantTimeEqual(account.Password, password) {
		return "", Identity{}, ErrInvalidCredentials
	}

	now := s.clock()
	ident := Identity{AccountID: account.Email, Plan: account.Plan}
	claims := Claims{
		Plan: account.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.TokenTTLMin) * time.Minute)),
			Issuer:    "voxscribe",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SigningKey))
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, ident, nil
}

// Verify parses and validates a bearer token.
func (s *Service) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.SigningKey), nil
	}, jwt.WithTimeFunc(s.clock), jwt.WithIssuer("voxscribe"))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return Identity{AccountID: claims.Subject, Plan: claims.Plan}, nil
}

// PlanFor reports the configured plan for an account, defaulting to free.
func (s *Service) PlanFor(accountID string) string {
	for _, account := range s.cfg.Accounts {
		if account.Email == accountID {
			return account.Plan
		}
	}
	return "free"
}

func constantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
