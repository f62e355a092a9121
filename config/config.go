package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug            bool   `envconfig:"debug"`
	Env              string `envconfig:"env"`
	Port             int    `envconfig:"port" default:"8080"`
	Host             string `envconfig:"host"`
	PostgresHost     string `envconfig:"postgres_host"`
	PostgresPort     int    `envconfig:"postgres_port" default:"5432"`
	PostgresUser     string `envconfig:"postgres_user"`
	PostgresPassword string `envconfig:"postgres_password"`
	PostgresDB       string `envconfig:"postgres_db"`
	RedisAddr        string `envconfig:"redis_addr" default:"localhost:6379"`
	JWTSecret        string `envconfig:"jwt_secret"`
	SweepSecret      string `envconfig:"sweep_secret"`

	// Sweeps also run in-process when the interval is > 0, so a deployment
	// without an external cron still promotes and expires notifications.
	SendDueIntervalSeconds int `envconfig:"send_due_interval_seconds" default:"60"`
	ExpiryIntervalSeconds  int `envconfig:"expiry_interval_seconds" default:"3600"`
	CleanupIntervalSeconds int `envconfig:"cleanup_interval_seconds" default:"86400"`
	CleanupRetentionDays   int `envconfig:"cleanup_retention_days" default:"30"`

	FeedMaxLimit int `envconfig:"feed_max_limit" default:"250"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("notify", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}
