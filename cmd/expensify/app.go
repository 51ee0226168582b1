package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/expensify/internal/db"
	"github.com/nkiryanov/expensify/internal/filestore"
	"github.com/nkiryanov/expensify/internal/handlers"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/ratelimit"
	"github.com/nkiryanov/expensify/internal/repository/postgres"
	"github.com/nkiryanov/expensify/internal/service/auth"
	"github.com/nkiryanov/expensify/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/expensify/internal/service/expense"
	"github.com/nkiryanov/expensify/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (_ *ServerApp, err error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, db.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	storage := postgres.NewStorage(pool)

	files, uploadDir, err := newFileStore(ctx, c)
	if err != nil {
		return nil, err
	}

	lim, err := app.newRateLimiter(ctx, c)
	if err != nil {
		return nil, err
	}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	hasher := auth.BcryptHasher{}
	userService := user.NewService(hasher, storage, files, logger)
	expenseService := expense.NewService(storage)
	authService, err := auth.NewService(auth.Config{Hasher: hasher}, tokenManager, storage, userService)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	cfg := handlers.RouterConfig{UploadDir: uploadDir, AuthLimiter: lim}
	app.Handler = handlers.NewRouter(cfg, authService, userService, expenseService, logger)

	return app, nil
}

// Local store is served by the app itself, so its dir is returned too
func newFileStore(ctx context.Context, c *Config) (filestore.Store, string, error) {
	switch c.AvatarStorage {
	case avatarStorageS3:
		s, err := filestore.NewS3(ctx, filestore.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			PublicURL: c.S3PublicURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("error while creating s3 avatar store. Err: %w", err)
		}
		return s, "", nil
	default:
		l, err := filestore.NewLocal(c.UploadDir, filestore.DefaultURLPrefix)
		if err != nil {
			return nil, "", fmt.Errorf("error while creating local avatar store. Err: %w", err)
		}
		return l, l.Dir(), nil
	}
}

type limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Nil limiter if limiting is disabled
func (s *ServerApp) newRateLimiter(ctx context.Context, c *Config) (limiter, error) {
	if c.RateLimit == 0 {
		return nil, nil
	}
	cfg := ratelimit.Config{Limit: c.RateLimit, Window: c.RateLimitWindow}

	if c.RedisAddr == "" {
		m, err := ratelimit.NewMemory(cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, m.Stop)
		return m, nil
	}

	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	s.closers = append(s.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
	}

	return ratelimit.NewRedis(client, "expensify:ratelimit", cfg)
}

// Release resources in reverse order of acquiring
func (s *ServerApp) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
