// file: service/token.go

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects which signing secret and lifetime a token uses.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenReset   TokenKind = "reset"
)

// Default lifetimes, applied when the configuration leaves one unset.
const (
	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 4800 * time.Hour
	defaultResetTTL   = 2 * time.Minute
)

// ITokenSigner mints and verifies signed, time-bound tokens. The subject
// carries the user id for access and refresh tokens and the email address
// for reset tokens; nothing else is encoded.
type ITokenSigner interface {
	Mint(kind TokenKind, subject string) (string, error)
	Verify(kind TokenKind, tokenString string) (string, error)
}

// SignerConfig holds the per-kind signing secrets and lifetimes.
type SignerConfig struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// JWTSigner implements ITokenSigner with HMAC-signed JWTs. Each token kind
// is signed with its own secret, so a token of one kind can never verify
// as another.
type JWTSigner struct {
	secrets map[TokenKind][]byte
	ttls    map[TokenKind]time.Duration
	now     func() time.Time
}

func NewJWTSigner(cfg SignerConfig) *JWTSigner {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = defaultResetTTL
	}

	return &JWTSigner{
		secrets: map[TokenKind][]byte{
			TokenAccess:  []byte(cfg.AccessSecret),
			TokenRefresh: []byte(cfg.RefreshSecret),
			TokenReset:   []byte(cfg.ResetSecret),
		},
		ttls: map[TokenKind]time.Duration{
			TokenAccess:  cfg.AccessTTL,
			TokenRefresh: cfg.RefreshTTL,
			TokenReset:   cfg.ResetTTL,
		},
		now: time.Now,
	}
}

// Mint creates a signed token of the given kind bound to subject.
func (s *JWTSigner) Mint(kind TokenKind, subject string) (string, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind: %s", kind)
	}

	now := s.now()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttls[kind])),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return tokenString, nil
}

// Verify checks signature and expiry for a token of the given kind and
// returns its subject.
func (s *JWTSigner) Verify(kind TokenKind, tokenString string) (string, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind: %s", kind)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", fmt.Errorf("invalid %s token: %w", kind, err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid %s token", kind)
	}
	return claims.Subject, nil
}
