package config

import "strings"

// normalizeDatabaseConfig trims fields, resolves driver aliases and fills
// anything left empty, so DSNValue never has to default.
func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	trim := func(fields ...*string) {
		for _, f := range fields {
			*f = strings.TrimSpace(*f)
		}
	}
	trim(&cfg.DSN, &cfg.URL, &cfg.Host, &cfg.User, &cfg.Username, &cfg.Password,
		&cfg.Name, &cfg.DBName, &cfg.Charset, &cfg.Loc, &cfg.SSLMode)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "postgresql", "pg", "pgx":
		cfg.Driver = DriverPostgres
	case "":
		cfg.Driver = defaultDBDriver
	default:
		cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	}
	if isPostgresURL(cfg.DSN) || isPostgresURL(cfg.URL) {
		cfg.Driver = DriverPostgres
	}

	cfg.User = firstNonEmpty(cfg.User, cfg.Username, defaultDBUser)
	cfg.Name = firstNonEmpty(cfg.Name, cfg.DBName, defaultDBName)
	cfg.Host = firstNonEmpty(cfg.Host, defaultDBHost)
	cfg.Password = firstNonEmpty(cfg.Password, defaultDBPassword)
	cfg.Charset = firstNonEmpty(cfg.Charset, defaultDBCharset)
	cfg.Loc = firstNonEmpty(cfg.Loc, defaultDBLoc)
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
		if cfg.Driver == DriverPostgres {
			cfg.Port = defaultPGPort
		}
	}
	cfg.Params = copyStringMap(cfg.Params)
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL != "" && !strings.HasPrefix(cfg.URL, "redis://") && !strings.HasPrefix(cfg.URL, "rediss://") {
		cfg.URL = "redis://" + cfg.URL
	}
	cfg.Host = firstNonEmpty(strings.TrimSpace(cfg.Host), defaultRedisHost)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}

	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))
	if cfg.Scheme != "redis" && cfg.Scheme != "rediss" {
		cfg.Scheme = "redis"
		if cfg.TLS {
			cfg.Scheme = "rediss"
		}
	}
	cfg.Params = copyStringMap(cfg.Params)
	return cfg
}

// normalizeMailConfig enables mail implicitly when a transport is configured
// and enable was never set explicitly.
func normalizeMailConfig(cfg MailRuntimeConfig) MailRuntimeConfig {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.ReplyTo = strings.TrimSpace(cfg.ReplyTo)
	cfg.ResendKey = strings.TrimSpace(cfg.ResendKey)
	cfg.ProductName = firstNonEmpty(strings.TrimSpace(cfg.ProductName), defaultProductName)

	if cfg.Port == 0 {
		cfg.Port = defaultMailPort
	}
	if !cfg.HasEnable {
		cfg.Enable = cfg.Host != "" || cfg.ResendKey != ""
	}
	return cfg
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	return firstNonEmpty(strings.ToLower(strings.TrimSpace(env)), defaultEnv)
}

// copyStringMap drops entries whose key or value is blank.
func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k, v := strings.TrimSpace(key), strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
