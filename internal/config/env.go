package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognised on top of the YAML file.
const (
	EnvPort         = "PORT"
	EnvEnv          = "ENV"
	EnvServiceName  = "SERVICE_NAME"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvRedisURL     = "REDIS_URL"
	EnvMailEnable   = "MAIL_ENABLE"
	EnvMailServer   = "MAIL_SERVER"
	EnvMailPort     = "MAIL_PORT"
	EnvMailUsername = "MAIL_USERNAME"
	EnvMailPassword = "MAIL_PASSWORD"
	EnvMailFrom     = "MAIL_FROM"
	EnvResendAPIKey = "RESEND_API_KEY"
	EnvLogDir       = "LOG_DIR"
)

// LoadDotenv loads the first .env file found next to the working directory
// or its parents. Variables already present in the process environment win.
// It returns the loaded path, or "" when no file was found.
func LoadDotenv() (string, error) {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			return p, godotenv.Load(p)
		}
	}
	return "", nil
}

func applyEnvOverrides(cfg *AppConfig, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvPort); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v, ok := get(EnvEnv); ok {
		cfg.Env = v
	}
	if v, ok := get(EnvServiceName); ok {
		cfg.ServiceName = v
	}
	if v, ok := get(EnvDatabaseURL); ok {
		cfg.Database.DSN = v
		cfg.Database.URL = ""
	}
	if v, ok := get(EnvRedisURL); ok {
		cfg.Redis.URL = v
	}
	if v, ok := get(EnvLogDir); ok {
		cfg.Paths.Logs = v
	}

	if v, ok := get(EnvMailEnable); ok {
		if enable, err := strconv.ParseBool(v); err == nil {
			cfg.Mail.Enable = enable
			cfg.Mail.HasEnable = true
		}
	}
	if v, ok := get(EnvMailServer); ok {
		cfg.Mail.Host = v
	}
	if v, ok := get(EnvMailPort); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mail.Port = port
		}
	}
	if v, ok := get(EnvMailUsername); ok {
		cfg.Mail.User = v
	}
	if v, ok := get(EnvMailPassword); ok {
		cfg.Mail.Pass = v
	}
	if v, ok := get(EnvMailFrom); ok {
		cfg.Mail.From = v
	}
	if v, ok := get(EnvResendAPIKey); ok {
		cfg.Mail.ResendKey = v
	}
}
