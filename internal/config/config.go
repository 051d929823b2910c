package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service and jobs.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	JWTCookieName       string
	JWTExpiry           time.Duration
	UploadDir           string
	ClockOffsetHours    int
	LeaderboardCacheTTL time.Duration
	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPassword        string
	SMTPSender          string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSPOINT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClassPoint API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.cookie_name", "classpoint_token")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("clock.offset_hours", 9)
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("smtp.port", 587)

	expiry, err := time.ParseDuration(v.GetString("jwt.expiry"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt expiry: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("leaderboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTCookieName:       v.GetString("jwt.cookie_name"),
		JWTExpiry:           expiry,
		UploadDir:           v.GetString("upload.dir"),
		ClockOffsetHours:    v.GetInt("clock.offset_hours"),
		LeaderboardCacheTTL: cacheTTL,
		SMTPHost:            v.GetString("smtp.host"),
		SMTPPort:            v.GetInt("smtp.port"),
		SMTPUser:            v.GetString("smtp.user"),
		SMTPPassword:        v.GetString("smtp.password"),
		SMTPSender:          v.GetString("smtp.sender"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	return cfg, nil
}
