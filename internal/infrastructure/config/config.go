package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT   JWTConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// JWTConfig supplies the token issuer: signing key, issuer and audience
// strings, and the per-token lifetime in days.
type JWTConfig struct {
	Key          string `env:"JWT_KEY"`
	Issuer       string `env:"JWT_ISSUER,        default=identity-api"`
	Audience     string `env:"JWT_AUDIENCE,      default=identity-api-clients"`
	DurationDays int    `env:"JWT_DURATION_DAYS, default=1"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr             string `env:"REDIS_ADDR, default=localhost:6379"`
	DB               int    `env:"REDIS_DB,   default=0"`
	MaxLoginFailures int    `env:"MAX_LOGIN_FAILURES, default=10"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
