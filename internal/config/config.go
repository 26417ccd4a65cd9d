package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database Database `envPrefix:"DATABASE_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Storage  Storage  `envPrefix:"STORAGE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	RabbitMQ RabbitMQ `envPrefix:"RABBITMQ_"`
	Payment  Payment  `envPrefix:"PAYMENT_"`
	Stats    Stats    `envPrefix:"STATS_"`
	Tracing  Tracing  `envPrefix:"OTEL_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host           string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"15s"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"` // sqlite | mysql
	URL    string `env:"URL" envDefault:"bookstore.db"`
	Seed   bool   `env:"SEED" envDefault:"true"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"bookstore"`
}

type Storage struct {
	Dir           string `env:"DIR" envDefault:"./uploads"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080/files"`
	MaxProofBytes int64  `env:"MAX_PROOF_BYTES" envDefault:"10485760"`
}

type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type RabbitMQ struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"bookstore.exchange"`
}

type Payment struct {
	StoreBankReference string        `env:"STORE_BANK_REFERENCE" envDefault:"STORE-ACCOUNT"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"30s"`
}

type Stats struct {
	RecomputeInterval time.Duration `env:"RECOMPUTE_INTERVAL" envDefault:"10m"`
}

type Tracing struct {
	Enabled     bool   `env:"ENABLED" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"bookstore-payments"`
}
