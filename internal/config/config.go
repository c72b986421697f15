package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"chatrelay-backend/internal/logging"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	PlatformTelegram = "telegram"
	PlatformSlack    = "slack"
)

// insecureJWTSecret is the development fallback; production refuses it.
const insecureJWTSecret = "default-super-secret-key"

// Config holds application configuration. Each koanf key is the lowercased
// name of the environment variable that sets it.
type Config struct {
	AppEnv      string `koanf:"app_env"`
	HTTPPort    string `koanf:"http_port"`
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`

	JWTSecret          string `koanf:"jwt_secret"`
	JWTExpirationHours int    `koanf:"jwt_expiration_hours"`
	AdminUsername      string `koanf:"admin_username"`
	AdminPasswordHash  string `koanf:"admin_password_hash"`
	AdminPassword      string `koanf:"admin_password"`

	Platform           string `koanf:"platform"`
	TelegramBotToken   string `koanf:"telegram_bot_token"`
	TelegramGreeting   string `koanf:"telegram_greeting"`
	TelegramPollSecs   int    `koanf:"telegram_poll_timeout"`
	SlackBotToken      string `koanf:"slack_bot_token"`
	SlackSigningSecret string `koanf:"slack_signing_secret"`

	CloudinaryURL       string `koanf:"cloudinary_url"`
	CloudinaryCloudName string `koanf:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `koanf:"cloudinary_api_key"`
	CloudinaryAPISecret string `koanf:"cloudinary_api_secret"`
	BlobFolder          string `koanf:"blob_folder"`
	ImageMaxDimension   int    `koanf:"image_max_dimension"`
	MaxUploadMB         int    `koanf:"max_upload_mb"`

	CORSOrigins string `koanf:"cors_origins"` // Comma separated
	LogLevel    string `koanf:"log_level"`
	LogFormat   string `koanf:"log_format"`
}

func defaultConfig() Config {
	return Config{
		AppEnv:             EnvDevelopment,
		HTTPPort:           "8080",
		StoreDriver:        StoreDriverPostgres,
		JWTSecret:          insecureJWTSecret,
		JWTExpirationHours: 24,
		AdminUsername:      "admin",
		Platform:           PlatformTelegram,
		TelegramGreeting:   "Hello %s, welcome! Send us a message and an admin will reply here.",
		TelegramPollSecs:   60,
		BlobFolder:         "telegram-chat-app",
		ImageMaxDimension:  1000,
		MaxUploadMB:        50,
		CORSOrigins:        "*",
		LogLevel:           "info",
	}
}

// LoadConfig loads configuration from defaults, an optional .env file and the environment.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		logging.Debug().Err(err).Msg("[Config] No .env file loaded, using environment variables only")
	}
	return load()
}

func load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logging.Info().
		Str("env", cfg.AppEnv).
		Str("port", cfg.HTTPPort).
		Str("store", cfg.StoreDriver).
		Str("platform", cfg.Platform).
		Dur("token_exp", cfg.TokenExpiration()).
		Msg("[Config] Loaded config (secrets redacted)")
	return cfg, nil
}

// Validate rejects unusable combinations. Missing secrets are fatal in
// production and warnings otherwise.
func (c *Config) Validate() error {
	var errs []error
	switch c.Platform {
	case PlatformTelegram, PlatformSlack:
	default:
		errs = append(errs, fmt.Errorf("PLATFORM must be %q or %q, got %q", PlatformTelegram, PlatformSlack, c.Platform))
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}
	if c.JWTExpirationHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_HOURS must be positive"))
	}
	if c.ImageMaxDimension < 0 || c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("IMAGE_MAX_DIMENSION and MAX_UPLOAD_MB must be positive"))
	}

	var missing []string
	if c.StoreDriver == StoreDriverPostgres && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" || c.JWTSecret == insecureJWTSecret {
		missing = append(missing, "JWT_SECRET")
	}
	if c.AdminPasswordHash == "" && c.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH")
	}
	switch c.Platform {
	case PlatformTelegram:
		if c.TelegramBotToken == "" {
			missing = append(missing, "TELEGRAM_BOT_TOKEN")
		}
	case PlatformSlack:
		if c.SlackBotToken == "" {
			missing = append(missing, "SLACK_BOT_TOKEN")
		}
		if c.SlackSigningSecret == "" {
			missing = append(missing, "SLACK_SIGNING_SECRET")
		}
	}
	if !c.HasCloudinary() {
		missing = append(missing, "CLOUDINARY_URL")
	}
	if len(missing) > 0 {
		if c.IsProduction() {
			errs = append(errs, fmt.Errorf("required settings missing: %s", strings.Join(missing, ", ")))
		} else {
			logging.Warn().Strs("missing", missing).Msg("[Config] Settings missing, dependent features run degraded")
		}
	}
	if c.IsProduction() && c.AdminPasswordHash == "" && c.AdminPassword != "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is a development convenience; set ADMIN_PASSWORD_HASH in production"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// TokenExpiration is the admin token lifetime.
func (c *Config) TokenExpiration() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

// HasCloudinary reports whether blob store credentials are configured.
func (c *Config) HasCloudinary() bool {
	return c.CloudinaryURL != "" || (c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != "")
}

// MaxUploadBytes is the upload and download size bound.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// AllowedOrigins splits CORS_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
