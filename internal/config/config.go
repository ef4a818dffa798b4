package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

// Mail delivery modes
const (
	MailDeliverySync  = "sync"
	MailDeliveryQueue = "queue"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Mail     MailConfig     `env:",prefix=MAIL_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=5000"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty trusts none and the peer address is the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

type PostgresConfig struct {
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=postgres"`
	Password    string `env:"PASSWORD,default=postgres"`
	DBName      string `env:"DB,default=media_favourites"`
	SSLMode     string `env:"SSLMODE,default=disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// JWTConfig holds one signing secret per token kind so a token of one kind
// never verifies as another.
type JWTConfig struct {
	AccessSecret       string   `env:"ACCESS_SECRET,required"`
	RefreshSecret      string   `env:"REFRESH_SECRET,required"`
	ResetSecret        string   `env:"RESET_SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
	ResetTokenExpiry   Duration `env:"RESET_TOKEN_EXPIRY,default=1h"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=10"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

type MailConfig struct {
	Delivery     string   `env:"DELIVERY,default=queue"`
	SMTPHost     string   `env:"SMTP_HOST,default=sandbox.smtp.mailtrap.io"`
	SMTPPort     int      `env:"SMTP_PORT,default=2525"`
	SMTPUser     string   `env:"SMTP_USER,default="`
	SMTPPassword string   `env:"SMTP_PASSWORD,default="`
	From         string   `env:"FROM,default=Media Favourites <no-reply@media-favourites.local>"`
	VerifyURL    string   `env:"VERIFY_URL,default=http://localhost:5000/api/auth/verify-email"`
	ResetURL     string   `env:"RESET_URL,default=http://localhost:3000/reset-password"`
	MaxAttempts  int      `env:"MAX_ATTEMPTS,default=5"`
	PollTimeout  Duration `env:"POLL_TIMEOUT,default=5s"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from an optional .env file and environment variables
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks invariants envconfig cannot express
func (c *Config) Validate() error {
	secrets := map[string]string{
		"JWT_ACCESS_SECRET":  c.JWT.AccessSecret,
		"JWT_REFRESH_SECRET": c.JWT.RefreshSecret,
		"JWT_RESET_SECRET":   c.JWT.ResetSecret,
	}
	for name, secret := range secrets {
		if len(secret) < minSecretLength {
			return fmt.Errorf("%s must be at least %d characters long", name, minSecretLength)
		}
	}

	if c.JWT.AccessSecret == c.JWT.RefreshSecret ||
		c.JWT.AccessSecret == c.JWT.ResetSecret ||
		c.JWT.RefreshSecret == c.JWT.ResetSecret {
		return errors.New("JWT secrets must differ between access, refresh and reset tokens")
	}

	switch c.Mail.Delivery {
	case MailDeliverySync, MailDeliveryQueue:
	default:
		return fmt.Errorf("MAIL_DELIVERY must be %q or %q, got %q", MailDeliverySync, MailDeliveryQueue, c.Mail.Delivery)
	}

	if c.Mail.MaxAttempts < 1 {
		return errors.New("MAIL_MAX_ATTEMPTS must be positive")
	}

	return nil
}
