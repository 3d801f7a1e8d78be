package main

import (
	"github.com/dmitrymomot/jobqueue/pkg/httpserver"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/pg"
)

type appConfig struct {
	Env            string `env:"APP_ENV" envDefault:"development"`
	ServiceName    string `env:"APP_SERVICE_NAME" envDefault:"jobqueued"`
	LogLevel       string `env:"LOG_LEVEL"`
	RedisEnabled   bool   `env:"REDIS_ENABLED" envDefault:"false"`
	MongoEnabled   bool   `env:"MONGODB_ENABLED" envDefault:"false"`
	SkipMigrations bool   `env:"JOBQUEUE_SKIP_MIGRATIONS" envDefault:"false"`
}

// settings groups every env-driven config the daemon needs.
type settings struct {
	App      appConfig
	Postgres pg.Config
	Queue    jobqueue.Config
	Admin    httpserver.Config
}
