package main

import (
	"github.com/courtside/livescore/go/internal/auth"
	"github.com/courtside/livescore/go/internal/config"
)

// ServerConfig is the environment-only part of the API server's settings.
type ServerConfig struct {
	Port       string
	MirrorPath string
	RedisAddr  string
	Auth       auth.Config
}

func loadServerConfig(file *config.File) ServerConfig {
	return ServerConfig{
		Port:       config.GetEnv("PORT", "8080"),
		MirrorPath: config.GetEnv("MIRROR_PATH", "courtside-mirror.db"),
		RedisAddr:  config.GetEnv("REDIS_ADDR", ""),
		Auth: auth.Config{
			AdminPassword:     config.GetEnv("ADMIN_PASSWORD", ""),
			ScorerPassword:    config.GetEnv("SCORER_PASSWORD", ""),
			SchedulerPassword: config.GetEnv("SCHEDULER_PASSWORD", ""),
			CourtPasswords:    config.CourtPasswords(file.Courts),
			MaxAttempts:       file.Auth.MaxAttempts,
			Lockout:           file.Lockout(),
		},
	}
}
