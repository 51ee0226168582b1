package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/filestore"
	"github.com/nkiryanov/expensify/internal/handlers/middleware"
	"github.com/nkiryanov/expensify/internal/handlers/render"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/models"
	"github.com/nkiryanov/expensify/internal/repository"
	"github.com/nkiryanov/expensify/internal/service/user"
)

type RouterConfig struct {
	// Limits register, login and refresh per client address, nil disables limiting
	AuthLimiter rateLimiter

	// Directory served at /uploads/, empty if avatars are not kept locally
	UploadDir string
}

func NewRouter(
	cfg RouterConfig,
	authService authService,
	userService userService,
	expenseService expenseService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService, logger)

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		middleware.LoggerMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.ServiceError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.ServiceError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthLimiter != nil {
					r.Use(middleware.RateLimitMiddleware(cfg.AuthLimiter, logger))
				}
				r.Post("/register", handleRegister(authService, logger))
				r.Post("/login", handleLogin(authService, logger))
				r.Post("/refresh-token", handleTokenRefresh(authService, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(withAuth)
				r.Post("/logout", handleLogout(authService, logger))
				r.Post("/change-password", handleChangePassword(authService, logger))
				r.Get("/current-user", handleCurrentUser())
				r.Patch("/update-account", handleUpdateAccount(userService, logger))
				r.Patch("/avatar", handleUpdateAvatar(userService, logger))
			})
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Use(withAuth)
			r.Get("/get-expenses", handleListExpenses(expenseService, logger))
			r.Post("/add-expense", handleAddExpense(expenseService, logger))
			r.Put("/update-expense/{id}", handleUpdateExpense(expenseService, logger))
			r.Delete("/delete-expense/{id}", handleDeleteExpense(expenseService, logger))
		})
	})

	if cfg.UploadDir != "" {
		r.Handle(filestore.DefaultURLPrefix+"*", uploads(cfg.UploadDir))
	}

	return r
}

// Static avatar files, directory listing is not exposed
// Browser must not sniff files into something executable
func uploads(dir string) http.Handler {
	fs := http.StripPrefix(filestore.DefaultURLPrefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		if strings.HasSuffix(r.URL.Path, "/") {
			render.ServiceError(w, "Not found", http.StatusNotFound)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type authService interface {
	// Register user, no tokens issued
	// Has to return apperrors.ErrUserAlreadyExists if username or email is taken
	// Has to return apperrors.ErrAvatarRequired if no avatar uploaded
	// Has to return apperrors.ErrAvatarNotImage if avatar is not an image
	Register(ctx context.Context, params user.CreateUserParams) (models.User, error)

	// Login user by username or email
	// apperrors.ErrUserNotFound if no such user, apperrors.ErrInvalidCredentials on password mismatch
	Login(ctx context.Context, username string, email string, password string) (models.User, models.TokenPair, error)

	Logout(ctx context.Context, userID uuid.UUID) error

	// Rotate tokens using refresh token
	// If token malformed or its user gone: has to return apperrors.ErrTokenInvalid
	// If token is not the stored one: has to return apperrors.ErrRefreshTokenIsUsed
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// apperrors.ErrInvalidCredentials if old password does not match
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	// Resolve access token to sanitized user
	Authenticate(ctx context.Context, access string) (models.User, error)

	GetAccessString(r *http.Request) string
	GetRefreshString(r *http.Request) string

	// Set auth tokens (access, refresh) to response cookies
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)
}

type userService interface {
	// Has to return apperrors.ErrUserAlreadyExists if email is taken
	UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)

	// Has to return apperrors.ErrAvatarRequired if upload is nil, apperrors.ErrAvatarNotImage if not an image
	UpdateAvatar(ctx context.Context, userID uuid.UUID, upload *filestore.Upload) (models.User, error)
}

type expenseService interface {
	Create(ctx context.Context, userID uuid.UUID, params repository.ExpenseParams) (models.Expense, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Expense, error)

	// Both have to return apperrors.ErrExpenseNotFound if the user has no such entry
	Update(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID, params repository.ExpenseParams) (models.Expense, error)
	Delete(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID) (models.Expense, error)
}
