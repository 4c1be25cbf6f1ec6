package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// WebUIPath is the base URL of the web client, used in email links.
	WebUIPath    string `env:"WEB_UI_PATH,   default=http://localhost:3000"`
	CookieSecure bool   `env:"COOKIE_SECURE, default=true"`
	AdminEmail   string `env:"ADMIN_EMAIL,   default=support@ainterviewer.tech"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Security SecurityConfig
	Mail     MailConfig
	Sweeper  SweeperConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SecurityConfig struct {
	// PasswordPolicy is "strict" or "relaxed".
	PasswordPolicy      string        `env:"SECURITY_PASSWORD_POLICY,       default=strict"`
	FieldEncryption     bool          `env:"SECURITY_FIELD_ENCRYPTION,      default=false"`
	EncryptionKey       string        `env:"SECURITY_ENCRYPTION_KEY"`
	RequireInvitation   bool          `env:"SECURITY_REQUIRE_INVITATION,    default=true"`
	BcryptCost          int           `env:"SECURITY_BCRYPT_COST,           default=12"`
	PasswordTTL         time.Duration `env:"SECURITY_PASSWORD_TTL,          default=1440h"`
	MaxPasswordAttempts int           `env:"SECURITY_MAX_PASSWORD_ATTEMPTS, default=3"`
}

type MailConfig struct {
	Sender        string `env:"MAIL_SENDER,    default=AInterviewer <no-reply@ainterviewer.tech>"`
	MailgunDomain string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey string `env:"MAILGUN_API_KEY"`
	NotifyWorkers int    `env:"NOTIFY_WORKERS, default=4"`
}

type SweeperConfig struct {
	Schedule  string        `env:"SWEEPER_SCHEDULE,   default=*/1 * * * *"`
	LockTTL   time.Duration `env:"SWEEPER_LOCK_TTL,   default=10m"`
	InProcess bool          `env:"SWEEPER_IN_PROCESS, default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MailgunEnabled reports whether real mail delivery is configured.
func (c *Config) MailgunEnabled() bool {
	return c.Mail.MailgunDomain != "" && c.Mail.MailgunAPIKey != ""
}

// Validate rejects configurations the service cannot safely start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Security.PasswordPolicy != "strict" && c.Security.PasswordPolicy != "relaxed" {
		errs = append(errs, fmt.Errorf("SECURITY_PASSWORD_POLICY must be strict or relaxed, got %q", c.Security.PasswordPolicy))
	}
	if c.Security.FieldEncryption {
		key, err := base64.StdEncoding.DecodeString(c.Security.EncryptionKey)
		if c.Security.EncryptionKey == "" || err != nil || len(key) != 32 {
			errs = append(errs, errors.New("SECURITY_ENCRYPTION_KEY must be 32 base64-encoded bytes when SECURITY_FIELD_ENCRYPTION is on"))
		}
	}
	if c.IsProduction() && !c.MailgunEnabled() {
		errs = append(errs, errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required in production"))
	}
	return errors.Join(errs...)
}
