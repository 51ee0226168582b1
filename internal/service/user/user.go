package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/filestore"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/models"
	"github.com/nkiryanov/expensify/internal/repository"
)

type passwordHasher interface {
	Hash(password string) (string, error)
}

type CreateUserParams struct {
	FullName string
	Username string
	Email    string
	Password string

	// Required, nil fails with apperrors.ErrAvatarRequired
	Avatar *filestore.Upload
}

type UserService struct {
	hasher  passwordHasher
	storage repository.Storage
	files   filestore.Store
	logger  logger.Logger
}

func NewService(hasher passwordHasher, storage repository.Storage, files filestore.Store, l logger.Logger) *UserService {
	return &UserService{
		hasher:  hasher,
		storage: storage,
		files:   files,
		logger:  l,
	}
}

// Username is stored lower-cased, emails and names only trimmed
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Create user with hashed password and stored avatar
// Identity conflict is checked before avatar is required or stored
// Avatar has to be an image, apperrors.ErrAvatarNotImage otherwise
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	var user models.User

	username := NormalizeUsername(params.Username)
	email := strings.TrimSpace(params.Email)

	exists, err := s.storage.User().ExistsByUsernameOrEmail(ctx, username, email)
	switch {
	case err != nil:
		return user, fmt.Errorf("can't check user exists. Err: %w", err)
	case exists:
		return user, apperrors.ErrUserAlreadyExists
	case params.Avatar == nil:
		return user, apperrors.ErrAvatarRequired
	}

	if _, err := filestore.ImageType(params.Avatar.Filename); err != nil {
		return user, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	avatar, err := s.files.Put(ctx, *params.Avatar)
	if err != nil {
		return user, fmt.Errorf("can't store avatar. Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(params.FullName),
		Avatar:       avatar,
		PasswordHash: hash,
	})
	if err != nil {
		s.dropAvatar(ctx, avatar)
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return user, err
		}
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user.Sanitized(), nil
}

func (s *UserService) UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	user, err := s.storage.User().UpdateAccount(ctx, userID, strings.TrimSpace(fullName), strings.TrimSpace(email))
	if err != nil {
		return user, err
	}
	return user.Sanitized(), nil
}

// Replace avatar, the previous file is removed once the new one is saved
// Lookup and update run in one transaction so the removed file is the one replaced
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, upload *filestore.Upload) (models.User, error) {
	if upload == nil {
		return models.User{}, apperrors.ErrAvatarRequired
	}
	if _, err := filestore.ImageType(upload.Filename); err != nil {
		return models.User{}, err
	}

	var user, previous models.User
	var avatar string

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error

		previous, err = tx.User().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		avatar, err = s.files.Put(ctx, *upload)
		if err != nil {
			return fmt.Errorf("can't store avatar. Err: %w", err)
		}

		user, err = tx.User().UpdateAvatar(ctx, userID, avatar)
		return err
	})
	if err != nil {
		s.dropAvatar(ctx, avatar)
		return models.User{}, err
	}

	s.dropAvatar(ctx, previous.Avatar)
	return user.Sanitized(), nil
}

func (s *UserService) dropAvatar(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.files.Delete(ctx, url); err != nil {
		s.logger.Warn("avatar file left behind", "url", url, "error", err)
	}
}
