package config

import (
	"os"
)

const (
	defaultDBPath   = "./dev.db"
	defaultPort     = "8080"
	defaultEnv      = "dev"
	defaultLogLevel = "info"
)

// Config holds application configuration sourced from an optional YAML file
// and environment variables. Environment variables win.
type Config struct {
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
	SessionSecret string `yaml:"session_secret"`
	DBPath        string `yaml:"db_path"`
	Port          string `yaml:"port"`
	Env           string `yaml:"env"`
	LogLevel      string `yaml:"log_level"`

	// Warnings lists settings that were left empty; the caller logs them once
	// a logger exists.
	Warnings []string `yaml:"-"`
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// Load reads path (if it exists) and then the environment, and returns a
// populated Config. An empty path skips the file layer.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	override(&cfg.AdminEmail, "ADMIN_EMAIL")
	override(&cfg.AdminPassword, "ADMIN_PASSWORD")
	override(&cfg.SessionSecret, "SESSION_SECRET")
	override(&cfg.DBPath, "DB_PATH")
	override(&cfg.Port, "PORT")
	override(&cfg.Env, "APP_ENV")
	override(&cfg.LogLevel, "LOG_LEVEL")

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if cfg.AdminEmail == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "SESSION_SECRET is not set")
	}

	return cfg, nil
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
