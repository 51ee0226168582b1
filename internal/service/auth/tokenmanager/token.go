package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 10 * 24 * time.Hour
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"_id"`
	Username string    `json:"userName"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
}

type RefreshTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"_id"`
}

// Token manager with sensible default
type Config struct {
	// Secret keys to sign access and refresh tokens
	// Both required and must differ
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

type TokenManager struct {
	accessKey  []byte
	refreshKey []byte

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "":
		return nil, errors.New("access token secret must not be empty")
	case cfg.RefreshSecret == "":
		return nil, errors.New("refresh token secret must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh token secrets must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing method %q, only HMAC allowed", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field <= 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenManager{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// Issue access token carrying the identity claims
func (m *TokenManager) IssueAccess(claims models.AccessClaims) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(m.alg, AccessTokenClaims{
		RegisteredClaims: registered(now, expiresAt),
		UserID:           claims.UserID,
		Username:         claims.Username,
		Email:            claims.Email,
		FullName:         claims.FullName,
	})
	signed, err := token.SignedString(m.accessKey)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Issue refresh token, it carries only the user id
func (m *TokenManager) IssueRefresh(userID uuid.UUID) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.refreshTTL)

	token := jwt.NewWithClaims(m.alg, RefreshTokenClaims{
		RegisteredClaims: registered(now, expiresAt),
		UserID:           userID,
	})
	signed, err := token.SignedString(m.refreshKey)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

func (m *TokenManager) GeneratePair(user models.User) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := m.IssueAccess(models.AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
	if err != nil {
		return pair, err
	}

	refresh, err := m.IssueRefresh(user.ID)
	if err != nil {
		return pair, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse and validate access token
// Any failure is apperrors.ErrTokenInvalid wrapping the jwt cause
func (m *TokenManager) ParseAccess(access string) (models.AccessClaims, error) {
	claims := &AccessTokenClaims{}
	if err := m.parse(access, m.accessKey, claims); err != nil {
		return models.AccessClaims{}, err
	}

	return models.AccessClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		FullName: claims.FullName,
	}, nil
}

// Parse and validate refresh token, return user id it was issued for
func (m *TokenManager) ParseRefresh(refresh string) (uuid.UUID, error) {
	claims := &RefreshTokenClaims{}
	if err := m.parse(refresh, m.refreshKey, claims); err != nil {
		return uuid.Nil, err
	}

	return claims.UserID, nil
}

func (m *TokenManager) parse(value string, key []byte, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return nil
}

// Unique id and issued-at make every token distinct even within the same second
func registered(now time.Time, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}
