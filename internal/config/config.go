// Package config loads askdb settings from viper (config file, environment,
// flags) and named connection profiles from a YAML file.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings holds all tunable configuration for the askdb service.
type Settings struct {
	// Server
	Host            string
	Port            int
	CORSOrigins     []string
	RateLimit       int // requests per minute per IP on AI-backed routes
	ShutdownTimeout time.Duration

	// Database execution
	QueryTimeout time.Duration
	PoolSize     int
	PoolOverflow int
	PoolRecycle  time.Duration

	// Schema cache
	SchemaTTL time.Duration

	// Sessions
	MaxChatHistory         int
	MaxConversationHistory int
	SessionIdleTimeout     time.Duration
	SweepSchedule          string // cron spec for the expiry sweeper

	// AI collaborator
	AIBaseURL     string
	AIAPIKey      string
	AIModel       string
	AITemperature float64
	AIMaxTokens   int
	AITimeout     time.Duration

	// Admin auth
	AdminToken string
	JWTSecret  string
	JWTTTL     time.Duration
}

// SetDefaults registers the default value for every setting on v. Called
// once during CLI initialization so config files and env vars only need to
// override what they change.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("db.query_timeout", "30s")
	v.SetDefault("db.pool_size", 5)
	v.SetDefault("db.pool_overflow", 10)
	v.SetDefault("db.pool_recycle", "1h")

	v.SetDefault("schema.ttl", "300s")

	v.SetDefault("session.max_chat_history", 50)
	v.SetDefault("session.max_conversation_history", 10)
	v.SetDefault("session.idle_timeout", "60m")
	v.SetDefault("session.sweep_schedule", "@every 10m")

	v.SetDefault("ai.base_url", "https://api.openai.com")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.timeout", "60s")

	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.jwt_secret", "askdb-dev-secret-change-me")
	v.SetDefault("auth.jwt_ttl", "12h")
}

// Load materializes Settings from v.
func Load(v *viper.Viper) Settings {
	return Settings{
		Host:            v.GetString("server.host"),
		Port:            v.GetInt("server.port"),
		CORSOrigins:     v.GetStringSlice("server.cors_origins"),
		RateLimit:       v.GetInt("server.rate_limit"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),

		QueryTimeout: v.GetDuration("db.query_timeout"),
		PoolSize:     v.GetInt("db.pool_size"),
		PoolOverflow: v.GetInt("db.pool_overflow"),
		PoolRecycle:  v.GetDuration("db.pool_recycle"),

		SchemaTTL: v.GetDuration("schema.ttl"),

		MaxChatHistory:         v.GetInt("session.max_chat_history"),
		MaxConversationHistory: v.GetInt("session.max_conversation_history"),
		SessionIdleTimeout:     v.GetDuration("session.idle_timeout"),
		SweepSchedule:          v.GetString("session.sweep_schedule"),

		AIBaseURL:     v.GetString("ai.base_url"),
		AIAPIKey:      v.GetString("ai.api_key"),
		AIModel:       v.GetString("ai.model"),
		AITemperature: v.GetFloat64("ai.temperature"),
		AIMaxTokens:   v.GetInt("ai.max_tokens"),
		AITimeout:     v.GetDuration("ai.timeout"),

		AdminToken: v.GetString("auth.admin_token"),
		JWTSecret:  v.GetString("auth.jwt_secret"),
		JWTTTL:     v.GetDuration("auth.jwt_ttl"),
	}
}
