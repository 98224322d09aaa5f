package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	// StateDriver selects where the highest-bid register and the ledger
	// live: Redis + Postgres, or process memory for single-node runs.
	StateDriver string `env:"STATE_DRIVER" envDefault:"redis" validate:"oneof=redis memory"`

	RedisAuctionsHost     string `env:"REDIS_AUCTIONS_HOST"     envDefault:"localhost"`
	RedisAuctionsPort     uint16 `env:"REDIS_AUCTIONS_PORT"     envDefault:"6379" validate:"min=1000,max=65535"`
	RedisAuctionsPassword string `env:"REDIS_AUCTIONS_PASSWORD"`
	RedisAuctionsDb       int    `env:"REDIS_AUCTIONS_DB"       envDefault:"0"    validate:"min=0,max=15"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"auction_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"auction_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"auction_db"`
	PostgresMigrate  bool   `env:"POSTGRES_MIGRATE"  envDefault:"true"`

	BidMaxAttempts  int           `env:"BID_MAX_ATTEMPTS"  envDefault:"5"    validate:"min=1,max=20"`
	BidRetryBackoff time.Duration `env:"BID_RETRY_BACKOFF" envDefault:"2ms"  validate:"min=0"`

	// BidRateLimit bids per BidRatePeriod are allowed for each actor,
	// counted across the REST route and the websocket together.
	BidRateLimit  int           `env:"BID_RATE_LIMIT"  envDefault:"10"  validate:"min=1"`
	BidRatePeriod time.Duration `env:"BID_RATE_PERIOD" envDefault:"1m"  validate:"min=1s"`

	// AuthJwtSecret enables bearer token verification. Empty trusts the
	// X-User-ID header, for local development.
	AuthJwtSecret string `env:"AUTH_JWT_SECRET"`

	NotifyWorkers       int           `env:"NOTIFY_WORKERS"        envDefault:"16"  validate:"min=1,max=1024"`
	StatusSweepInterval time.Duration `env:"STATUS_SWEEP_INTERVAL" envDefault:"5s"  validate:"min=0"`

	BidFeedGroup    string `env:"BID_FEED_GROUP"    envDefault:"notifiers"`
	BidFeedConsumer string `env:"BID_FEED_CONSUMER"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
