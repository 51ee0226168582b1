package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nkiryanov/expensify/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 10 * 24 * time.Hour
	defaultAvatarStorage   = avatarStorageLocal
	defaultUploadDir       = "./uploads"
	defaultRateLimit       = 20
	defaultRateLimitWindow = time.Minute
)

const (
	avatarStorageLocal = "local"
	avatarStorageS3    = "s3"
)

type Config struct {
	// Default logging level
	LogLevel string `yaml:"log_level"`

	// Environment, text logs for development and JSON for production
	Environment string `yaml:"environment"`

	// Address on which the service will be run
	ListenAddr string `yaml:"run_address"`

	// Database to connect to
	DatabaseDSN string `yaml:"database_uri"`

	// Access and refresh tokens are signed with different keys
	AccessSecret  string        `yaml:"access_token_secret"`
	AccessTTL     time.Duration `yaml:"access_token_expiry"`
	RefreshSecret string        `yaml:"refresh_token_secret"`
	RefreshTTL    time.Duration `yaml:"refresh_token_expiry"`

	// Where avatars are kept: local or s3
	AvatarStorage string `yaml:"avatar_storage"`
	UploadDir     string `yaml:"upload_dir"`

	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3PublicURL string `yaml:"s3_public_url"`

	// Register, login and refresh requests per client within the window
	// Shared through redis if address set, in memory otherwise. Zero limit disables limiting
	RedisAddr       string        `yaml:"redis_addr"`
	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		Environment:     defaultEnvironment,
		ListenAddr:      defaultListenAddr,
		AccessTTL:       defaultAccessTTL,
		RefreshTTL:      defaultRefreshTTL,
		AvatarStorage:   defaultAvatarStorage,
		UploadDir:       defaultUploadDir,
		RateLimit:       defaultRateLimit,
		RateLimitWindow: defaultRateLimitWindow,
	}
}

// Load options from YAML file, keys absent in file are left as is
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read config file. Err: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("can't parse config file %s. Err: %w", path, err)
	}
	return nil
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			i, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = i
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"ACCESS_TOKEN_SECRET":  setString(&c.AccessSecret),
		"ACCESS_TOKEN_EXPIRY":  setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_SECRET": setString(&c.RefreshSecret),
		"REFRESH_TOKEN_EXPIRY": setDuration(&c.RefreshTTL),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"AVATAR_STORAGE":       setString(&c.AvatarStorage),
		"UPLOAD_DIR":           setString(&c.UploadDir),
		"S3_BUCKET":            setString(&c.S3Bucket),
		"S3_REGION":            setString(&c.S3Region),
		"S3_ENDPOINT":          setString(&c.S3Endpoint),
		"S3_ACCESS_KEY":        setString(&c.S3AccessKey),
		"S3_SECRET_KEY":        setString(&c.S3SecretKey),
		"S3_PUBLIC_URL":        setString(&c.S3PublicURL),
		"REDIS_ADDR":           setString(&c.RedisAddr),
		"RATE_LIMIT":           setInt(&c.RateLimit),
		"RATE_LIMIT_WINDOW":    setDuration(&c.RateLimitWindow),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("bad %s value: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("expensify", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "Access token secret")
	fs.DurationVar(&c.AccessTTL, "access-expiry", c.AccessTTL, "Access token lifetime")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "Refresh token secret")
	fs.DurationVar(&c.RefreshTTL, "refresh-expiry", c.RefreshTTL, "Refresh token lifetime")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.StringVar(&c.AvatarStorage, "avatar-storage", c.AvatarStorage, "Avatar storage (local, s3)")
	fs.StringVar(&c.UploadDir, "upload-dir", c.UploadDir, "Directory for locally stored avatars")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket for avatars")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "S3 region")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "Custom S3 endpoint")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for shared rate limits")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "Auth requests per client within window, 0 disables")
	fs.DurationVar(&c.RateLimitWindow, "rate-limit-window", c.RateLimitWindow, "Rate limit window")

	return fs.Parse(args)
}

// Check options that have no sane default
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database uri must be set"))
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		errs = append(errs, errors.New("access and refresh token secrets must be set"))
	}

	switch c.AvatarStorage {
	case avatarStorageLocal:
	case avatarStorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket must be set for s3 avatar storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown avatar storage %q", c.AvatarStorage))
	}

	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}

	return errors.Join(errs...)
}
