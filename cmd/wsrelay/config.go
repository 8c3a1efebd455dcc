package main

import (
	"github.com/dmitrymomot/wsrelay/core/server"
	"github.com/dmitrymomot/wsrelay/integration/database/redis"
	"github.com/dmitrymomot/wsrelay/internal/relay"
)

// Config is the process configuration, loaded from the environment and .env.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"wsrelay"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`

	Server server.Config
	Relay  relay.Config
	Redis  redis.Config
}
