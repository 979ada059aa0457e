package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Stripe   StripeConfig   `env:",prefix=STRIPE_"`
	Usage    UsageConfig    `env:",prefix=USAGE_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=entitlement"`
	Password string `env:"PASSWORD,default=entitlement_password"`
	DBName   string `env:"DB,default=entitlement_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret        string   `env:"SECRET,required"`
	CredentialTTL Duration `env:"CREDENTIAL_TTL,default=30d"`
}

// StripeConfig holds the payment-provider collaborator settings. The price
// IDs are the two fixed subscription price points; the webhook secret signs
// inbound lifecycle events.
type StripeConfig struct {
	SecretKey       string `env:"SECRET_KEY,default="`
	WebhookSecret   string `env:"WEBHOOK_SECRET,default="`
	MonthlyPriceID  string `env:"MONTHLY_PRICE_ID,default="`
	AnnualPriceID   string `env:"ANNUAL_PRICE_ID,default="`
	SuccessURL      string `env:"SUCCESS_URL,default=https://pagebrief.app/upgrade/success"`
	CancelURL       string `env:"CANCEL_URL,default=https://pagebrief.app/upgrade/cancel"`
	PortalReturnURL string `env:"PORTAL_RETURN_URL,default=https://pagebrief.app/account"`
}

type UsageConfig struct {
	FreeDomainLimit int `env:"FREE_DOMAIN_LIMIT,default=3"`
}

type SecurityConfig struct {
	BCryptCost              int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests       int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow         Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	CredentialSweepInterval Duration `env:"CREDENTIAL_SWEEP_INTERVAL,default=1h"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=chrome-extension://*"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
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

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	// Slow hashing is the point; refuse configurations that weaken it.
	if config.Security.BCryptCost < 10 {
		return nil, fmt.Errorf("BCRYPT_COST must be at least 10")
	}

	if config.Usage.FreeDomainLimit < 1 {
		return nil, fmt.Errorf("USAGE_FREE_DOMAIN_LIMIT must be at least 1")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
