package user

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/filestore"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/repository"
	"github.com/nkiryanov/expensify/internal/repository/postgres"
	"github.com/nkiryanov/expensify/internal/testutil"
)

// Hash is reversible on purpose, real hashing is tested in auth package
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	return "hashed:" + password, nil
}

// Store that fails every put
type brokenStore struct{}

func (brokenStore) Put(context.Context, filestore.Upload) (string, error) {
	return "", errors.New("disk is on fire")
}
func (brokenStore) Delete(context.Context, string) error { return nil }

func upload(name string) *filestore.Upload {
	return &filestore.Upload{Filename: name, Body: strings.NewReader("img")}
}

func TestUser(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper function to create UserService within transaction
	inTx := func(t *testing.T, fn func(s *UserService, storage repository.Storage, files *filestore.Local)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			files, err := filestore.NewLocal(filepath.Join(t.TempDir(), "uploads"), "")
			require.NoError(t, err)

			storage := postgres.NewStorage(tx)
			fn(NewService(fakeHasher{}, storage, files, logger.NewNoOpLogger()), storage, files)
		})
	}

	params := func(username string) CreateUserParams {
		return CreateUserParams{
			FullName: "Test User",
			Username: username,
			Email:    username + "@example.com",
			Password: "password123",
			Avatar:   upload("me.png"),
		}
	}

	countFiles := func(t *testing.T, files *filestore.Local) int {
		entries, err := os.ReadDir(files.Dir())
		require.NoError(t, err)
		return len(entries)
	}

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			inTx(t, func(s *UserService, storage repository.Storage, files *filestore.Local) {
				user, err := s.CreateUser(t.Context(), params("  Test-User "))

				require.NoError(t, err, "creating new user should be ok")
				require.NotEmpty(t, user.ID, "user ID should not be empty")
				require.Equal(t, "test-user", user.Username, "username should be normalized")
				require.Empty(t, user.PasswordHash, "returned user has to be sanitized")
				require.NotZero(t, user.CreatedAt, "created at should be set")
				require.Equal(t, 1, countFiles(t, files), "avatar has to be stored")

				stored, err := storage.User().GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.Equal(t, "hashed:password123", stored.PasswordHash, "password should be hashed")
				require.Equal(t, user.Avatar, stored.Avatar)
			})
		})

		t.Run("empty password fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage, files *filestore.Local) {
				p := params("test-user")
				p.Password = ""

				_, err := s.CreateUser(t.Context(), p)

				require.Error(t, err, "creating user with empty password should fail")
				require.Equal(t, 0, countFiles(t, files), "avatar must not be stored")
			})
		})

		t.Run("avatar store failure", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				s := NewService(fakeHasher{}, postgres.NewStorage(tx), brokenStore{}, logger.NewNoOpLogger())

				_, err := s.CreateUser(t.Context(), params("test-user"))

				require.Error(t, err)
				require.NotErrorIs(t, err, apperrors.ErrAvatarRequired)
			})
		})

		t.Run("non image avatar rejected", func(t *testing.T) {
			inTx(t, func(s *UserService, storage repository.Storage, files *filestore.Local) {
				p := params("html-user")
				p.Avatar = upload("avatar.html")

				_, err := s.CreateUser(t.Context(), p)

				require.ErrorIs(t, err, apperrors.ErrAvatarNotImage)
				require.Equal(t, 0, countFiles(t, files))
				exists, err := storage.User().ExistsByUsernameOrEmail(t.Context(), "html-user", "html-user@example.com")
				require.NoError(t, err)
				require.False(t, exists, "user must not be created")
			})
		})

		t.Run("existing user does not leave avatar file", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage, files *filestore.Local) {
				_, err := s.CreateUser(t.Context(), params("test-user"))
				require.NoError(t, err)

				_, err = s.CreateUser(t.Context(), params("test-user"))

				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
				require.Equal(t, 1, countFiles(t, files))
			})
		})
	})

	t.Run("UpdateAccount", func(t *testing.T) {
		inTx(t, func(s *UserService, _ repository.Storage, _ *filestore.Local) {
			created, err := s.CreateUser(t.Context(), params("updater"))
			require.NoError(t, err)

			updated, err := s.UpdateAccount(t.Context(), created.ID, " New Name ", " new@example.com ")

			require.NoError(t, err)
			assert.Equal(t, "New Name", updated.FullName)
			assert.Equal(t, "new@example.com", updated.Email)
			assert.Empty(t, updated.PasswordHash)
		})
	})

	t.Run("UpdateAvatar", func(t *testing.T) {
		t.Run("replace ok", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage, files *filestore.Local) {
				created, err := s.CreateUser(t.Context(), params("avatar"))
				require.NoError(t, err)

				updated, err := s.UpdateAvatar(t.Context(), created.ID, upload("new.jpg"))

				require.NoError(t, err)
				assert.NotEqual(t, created.Avatar, updated.Avatar)
				assert.True(t, strings.HasSuffix(updated.Avatar, ".jpg"))
				assert.Equal(t, 1, countFiles(t, files), "old avatar file has to be removed")
			})
		})

		t.Run("avatar required", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage, _ *filestore.Local) {
				created, err := s.CreateUser(t.Context(), params("avatar"))
				require.NoError(t, err)

				_, err = s.UpdateAvatar(t.Context(), created.ID, nil)

				require.ErrorIs(t, err, apperrors.ErrAvatarRequired)
			})
		})

		t.Run("non image rejected", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage, files *filestore.Local) {
				created, err := s.CreateUser(t.Context(), params("avatar"))
				require.NoError(t, err)

				_, err = s.UpdateAvatar(t.Context(), created.ID, upload("avatar.html"))

				require.ErrorIs(t, err, apperrors.ErrAvatarNotImage)
				assert.Equal(t, 1, countFiles(t, files), "previous avatar must stay")
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage, files *filestore.Local) {
				_, err := s.UpdateAvatar(t.Context(), uuid.New(), upload("new.jpg"))

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
				assert.Equal(t, 0, countFiles(t, files))
			})
		})
	})
}
