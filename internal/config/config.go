package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	MailerURL      string `env:"MAILER_URL" envDefault:"http://mailer:8090"`
	MailerTimeoutS int    `env:"MAILER_TIMEOUT_S" envDefault:"5"`

	ReminderCooldownHours int  `env:"REMINDER_COOLDOWN_HOURS" envDefault:"24"`
	RequireFullPercentage bool `env:"SPLIT_REQUIRE_FULL_PERCENTAGE" envDefault:"false"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ReminderCooldown() time.Duration {
	return time.Duration(c.ReminderCooldownHours) * time.Hour
}
