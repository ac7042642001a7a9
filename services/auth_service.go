package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Права API-ключей.
const (
	ScopeTournamentsWrite = "tournaments:write"
	ScopeLeaderboardWrite = "leaderboard:write"
)

// SessionClaims хранит содержимое сессионного JWT. Роль в токен не кладём, она читается из базы на каждый запрос.
type SessionClaims struct {
	jwt.RegisteredClaims
}

func (c *SessionClaims) UserID() string { return c.Subject }

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// APIKey is an automation key: a bcrypt hash plus an explicit scope list.
type APIKey struct {
	Name   string
	Hash   []byte
	Scopes []string
}

func (k *APIKey) HasScope(scope string) bool {
	return k != nil && slices.Contains(k.Scopes, scope)
}

type AuthService interface {
	IssueSession(ctx context.Context, user *models.User) (*Session, error)
	ParseSession(ctx context.Context, token string) (*SessionClaims, error)
	RevokeSession(ctx context.Context, token string) error
	VerifyAPIKey(raw string) (*APIKey, bool)
}

type authService struct {
	secret   []byte
	ttl      time.Duration
	sessions repositories.SessionRepository
	apiKeys  []APIKey

	// кэш проверок по sha256(ключа): успешные хранят индекс ключа, неудачные попадают в rejected
	mu       sync.RWMutex
	verified map[string]int
	rejected map[string]struct{}
}

// Предел кэша отказов. При переполнении кэш сбрасывается целиком.
const maxRejectedKeys = 4096

func NewAuthService(secret string, ttl time.Duration, sessions repositories.SessionRepository, apiKeys []APIKey) AuthService {
	return &authService{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		apiKeys:  apiKeys,
		verified: make(map[string]int),
		rejected: make(map[string]struct{}),
	}
}

func (s *authService) IssueSession(_ context.Context, user *models.User) (*Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{Token: tokenString, ExpiresAt: expiresAt}, nil
}

func (s *authService) parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) ParseSession(ctx context.Context, token string) (*SessionClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check session revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

func (s *authService) RevokeSession(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil // уже недействителен
		}
		return err
	}
	if s.sessions == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *authService) VerifyAPIKey(raw string) (*APIKey, bool) {
	if raw == "" || len(s.apiKeys) == 0 {
		return nil, false
	}
	digest := sha256.Sum256([]byte(raw))
	cacheKey := hex.EncodeToString(digest[:])

	s.mu.RLock()
	idx, ok := s.verified[cacheKey]
	_, rejected := s.rejected[cacheKey]
	s.mu.RUnlock()
	if ok {
		return &s.apiKeys[idx], true
	}
	if rejected {
		return nil, false
	}

	for i := range s.apiKeys {
		if bcrypt.CompareHashAndPassword(s.apiKeys[i].Hash, []byte(raw)) == nil {
			s.mu.Lock()
			s.verified[cacheKey] = i
			s.mu.Unlock()
			return &s.apiKeys[i], true
		}
	}

	s.mu.Lock()
	if len(s.rejected) >= maxRejectedKeys {
		s.rejected = make(map[string]struct{})
	}
	s.rejected[cacheKey] = struct{}{}
	s.mu.Unlock()
	return nil, false
}
