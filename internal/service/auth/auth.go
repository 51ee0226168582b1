package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/models"
	"github.com/nkiryanov/expensify/internal/repository"
	"github.com/nkiryanov/expensify/internal/service/user"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"

	loginSwapAttempts = 3
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Report whether password matches hashedPassword
	// Mismatch is (false, nil), error only for broken hash
	Verify(hashedPassword string, password string) (bool, error)
}

type TokenManager interface {
	GeneratePair(user models.User) (models.TokenPair, error)

	// Both have to return apperrors.ErrTokenInvalid on malformed, forged or expired token
	ParseAccess(access string) (models.AccessClaims, error)
	ParseRefresh(refresh string) (uuid.UUID, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, params user.CreateUserParams) (models.User, error)
}

type Config struct {
	// Hasher to user during user login or password change
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Cookie names tokens are set to and read from
	AccessCookieName  string
	RefreshCookieName string

	// Header the access token may come in, as "<scheme> <token>"
	AccessHeaderName string
	AccessAuthScheme string
}

type AuthService struct {
	token   TokenManager
	hasher  PasswordHasher
	storage repository.Storage
	users   userCreator

	accessCookieName  string
	refreshCookieName string
	accessHeaderName  string
	accessAuthScheme  string
}

func NewService(cfg Config, tokenManager TokenManager, storage repository.Storage, users userCreator) (*AuthService, error) {
	if tokenManager == nil || storage == nil || users == nil {
		return nil, errors.New("auth service dependencies must not be nil")
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)

	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}

	return &AuthService{
		token:             tokenManager,
		hasher:            cfg.Hasher,
		storage:           storage,
		users:             users,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
	}, nil
}

// Register user. No tokens are issued, user has to login
func (s *AuthService) Register(ctx context.Context, params user.CreateUserParams) (models.User, error) {
	return s.users.CreateUser(ctx, params)
}

// Login user by username or email
// Username has priority if both given and point to different users
func (s *AuthService) Login(ctx context.Context, username string, email string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	found, err := s.storage.User().GetUserByLogin(ctx, user.NormalizeUsername(username), strings.TrimSpace(email))
	if err != nil {
		return models.User{}, pair, err
	}

	ok, err := s.hasher.Verify(found.PasswordHash, password)
	switch {
	case err != nil:
		return models.User{}, pair, fmt.Errorf("can't verify password. Err: %w", err)
	case !ok:
		return models.User{}, pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.token.GeneratePair(found)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.replaceSession(ctx, found.ID, found.RefreshToken, pair.Refresh.Value)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	return found.Sanitized(), pair, nil
}

// Login supersedes whatever session the user has. The write stays conditional:
// if refresh or another login changed the token since it was read, reread and try again
func (s *AuthService) replaceSession(ctx context.Context, userID uuid.UUID, seen string, next string) error {
	for attempt := 1; ; attempt++ {
		err := s.storage.Session().Swap(ctx, userID, seen, next)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, apperrors.ErrSessionConflict):
			return err
		case attempt == loginSwapAttempts:
			return fmt.Errorf("session kept changing after %d attempts: %w", attempt, err)
		}

		current, err := s.storage.User().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		seen = current.RefreshToken
	}
}

// Logout clears the stored refresh token, safe to call many times
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.storage.Session().Clear(ctx, userID)
}

// Rotate refresh token: the presented one must be exactly the stored one
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	userID, err := s.token.ParseRefresh(refresh)
	if err != nil {
		return pair, err
	}

	found, err := s.storage.User().GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return pair, fmt.Errorf("%w: user of the token is gone", apperrors.ErrTokenInvalid)
	case err != nil:
		return pair, err
	}

	if subtle.ConstantTimeCompare([]byte(found.RefreshToken), []byte(refresh)) != 1 {
		return pair, apperrors.ErrRefreshTokenIsUsed
	}

	pair, err = s.token.GeneratePair(found)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.storage.Session().Swap(ctx, found.ID, refresh, pair.Refresh.Value)
	switch {
	case errors.Is(err, apperrors.ErrSessionConflict):
		// Somebody rotated or logged out in between, presented token is stale now
		return models.TokenPair{}, apperrors.ErrRefreshTokenIsUsed
	case err != nil:
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Change password after verifying the old one
// Issued refresh token stays valid
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	found, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(found.PasswordHash, oldPassword)
	switch {
	case err != nil:
		return fmt.Errorf("can't verify password. Err: %w", err)
	case !ok:
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	return s.storage.User().UpdatePassword(ctx, userID, hash)
}

// Resolve access token to the live user, without password hash and refresh token
// apperrors.ErrNoToken if request has no token
// apperrors.ErrTokenInvalid if token is bad or its user is gone
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.User, error) {
	if access == "" {
		return models.User{}, apperrors.ErrNoToken
	}

	claims, err := s.token.ParseAccess(access)
	if err != nil {
		return models.User{}, err
	}

	found, err := s.storage.User().GetUserByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, fmt.Errorf("%w: user of the token is gone", apperrors.ErrTokenInvalid)
	case err != nil:
		return models.User{}, err
	}

	return found.Sanitized(), nil
}

// Get access token from cookie, then from header
func (s *AuthService) GetAccessString(r *http.Request) string {
	if c, err := r.Cookie(s.accessCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get(s.accessHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// Get refresh token from cookie, empty if none
func (s *AuthService) GetRefreshString(r *http.Request) string {
	if c, err := r.Cookie(s.refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

// Set both tokens as cookies
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.cookie(s.accessCookieName, pair.Access))
	http.SetCookie(w, s.cookie(s.refreshCookieName, pair.Refresh))
}

// Expire both token cookies on client
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	for _, name := range []string{s.accessCookieName, s.refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   true,
		})
	}
}

func (s *AuthService) cookie(name string, token models.IssuedToken) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		MaxAge:   max(int(time.Until(token.ExpiresAt).Seconds()), 1),
		HttpOnly: true,
		Secure:   true,
	}
}
