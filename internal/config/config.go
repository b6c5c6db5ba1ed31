package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML and the environment.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"`
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	ServiceName    string                `yaml:"service_name"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Mail           MailRuntimeConfig     `yaml:"mail"`
	Queue          QueueRuntimeConfig    `yaml:"queue"`
	Health         HealthRuntimeConfig   `yaml:"health"`
}

type DatabaseRuntimeConfig struct {
	Driver    string            `yaml:"driver"` // "mysql" | "postgres"
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// MailRuntimeConfig configures the confirmation mail transport.
type MailRuntimeConfig struct {
	Enable    bool   `yaml:"enable"`
	HasEnable bool   `yaml:"-"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	ResendKey string `yaml:"resend_key"`
	// ProductName is shown in the confirmation subject and body.
	ProductName string `yaml:"product_name"`
	// IntroMarkdown replaces the default welcome paragraph when set.
	IntroMarkdown string `yaml:"intro_markdown"`
}

type QueueRuntimeConfig struct {
	Workers int `yaml:"workers"`
	Size    int `yaml:"size"`
}

type HealthRuntimeConfig struct {
	ProbeTimeoutMS int `yaml:"probe_timeout_ms"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawAppConfig struct {
	Port               int                 `yaml:"port"`
	DSN                string              `yaml:"dsn"`
	DatabaseURL        string              `yaml:"database_url"`
	RedisURL           string              `yaml:"redis_url"`
	Database           rawDatabaseConfig   `yaml:"database"`
	Redis              rawRedisConfig      `yaml:"redis"`
	Env                string              `yaml:"env"`
	NodeEnv            string              `yaml:"node_env"`
	ServiceName        string              `yaml:"service_name"`
	Paths              rawPathsConfig      `yaml:"paths"`
	LogDir             string              `yaml:"log_dir"`
	AllowedOrigins     []string            `yaml:"allowed_origins"`
	CORSAllowedOrigins []string            `yaml:"cors_allowed_origins"`
	Mail               rawMailConfig       `yaml:"mail"`
	Queue              QueueRuntimeConfig  `yaml:"queue"`
	Health             HealthRuntimeConfig `yaml:"health"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawMailConfig struct {
	Enable        *bool  `yaml:"enable"`
	Host          string `yaml:"host"`
	Server        string `yaml:"server"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Username      string `yaml:"username"`
	Pass          string `yaml:"pass"`
	Password      string `yaml:"password"`
	From          string `yaml:"from"`
	ReplyTo       string `yaml:"reply_to"`
	ResendKey     string `yaml:"resend_key"`
	ProductName   string `yaml:"product_name"`
	IntroMarkdown string `yaml:"intro_markdown"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

// Load reads the YAML file at configPath, applies environment overrides and
// validates the result. A missing file is not an error; defaults are used.
func Load(configPath string) (*AppConfig, error) {
	return load(configPath, os.LookupEnv)
}

func load(configPath string, lookup func(string) (string, bool)) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		raw := rawAppConfig{}
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		applyRawAppConfig(&cfg, raw)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	applyEnvOverrides(&cfg, lookup)
	finalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks value ranges after normalisation.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Database.Driver != DriverMySQL && c.Database.Driver != DriverPostgres {
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Mail.Enable && (c.Mail.Port < 1 || c.Mail.Port > 65535) {
		return fmt.Errorf("invalid mail.port %d, expected 1-65535", c.Mail.Port)
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("invalid queue.workers %d, expected >= 1", c.Queue.Workers)
	}
	if c.Queue.Size < 1 {
		return fmt.Errorf("invalid queue.size %d, expected >= 1", c.Queue.Size)
	}
	return nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port:        defaultPort,
		Env:         defaultEnv,
		ServiceName: defaultServiceName,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Mail: MailRuntimeConfig{
			Port:        defaultMailPort,
			ProductName: defaultProductName,
		},
		Queue: QueueRuntimeConfig{
			Workers: defaultQueueWorkers,
			Size:    defaultQueueSize,
		},
		Health: HealthRuntimeConfig{
			ProbeTimeoutMS: defaultProbeTimeout,
		},
	}
	finalize(&cfg)
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)
	cfg.Mail = applyRawMailConfig(cfg.Mail, raw.Mail)
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.ServiceName); v != "" {
		cfg.ServiceName = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if raw.Queue.Workers != 0 {
		cfg.Queue.Workers = raw.Queue.Workers
	}
	if raw.Queue.Size != 0 {
		cfg.Queue.Size = raw.Queue.Size
	}
	if raw.Health.ProbeTimeoutMS != 0 {
		cfg.Health.ProbeTimeoutMS = raw.Health.ProbeTimeoutMS
	}
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Database.Driver); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(raw.Database.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.Host); v != "" {
		cfg.Host = v
	}
	if raw.Database.Port != 0 {
		cfg.Port = raw.Database.Port
	} else if cfg.Driver == DriverPostgres && cfg.Port == defaultDBPort {
		cfg.Port = defaultPGPort
	}
	if v := strings.TrimSpace(raw.Database.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Database.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.Charset); v != "" {
		cfg.Charset = v
	}
	if raw.Database.ParseTime != nil {
		cfg.ParseTime = *raw.Database.ParseTime
	}
	if v := strings.TrimSpace(raw.Database.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(raw.Database.SSLMode); v != "" {
		cfg.SSLMode = v
	}
	if raw.Database.Params != nil {
		cfg.Params = copyStringMap(raw.Database.Params)
	}
	return cfg
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Port = raw.Redis.Port
	}
	if v := strings.TrimSpace(raw.Redis.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.DB = *raw.Redis.DB
	}
	if raw.Redis.TLS != nil {
		cfg.TLS = *raw.Redis.TLS
	}
	if v := strings.TrimSpace(raw.Redis.Scheme); v != "" {
		cfg.Scheme = v
	}
	if raw.Redis.Params != nil {
		cfg.Params = copyStringMap(raw.Redis.Params)
	}
	return cfg
}

func applyRawMailConfig(current MailRuntimeConfig, raw rawMailConfig) MailRuntimeConfig {
	cfg := current

	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
		cfg.HasEnable = true
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(raw.Server); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Pass); v != "" {
		cfg.Pass = v
	}
	if v := strings.TrimSpace(raw.Password); v != "" {
		cfg.Pass = v
	}
	if v := strings.TrimSpace(raw.From); v != "" {
		cfg.From = v
	}
	if v := strings.TrimSpace(raw.ReplyTo); v != "" {
		cfg.ReplyTo = v
	}
	if v := strings.TrimSpace(raw.ResendKey); v != "" {
		cfg.ResendKey = v
	}
	if v := strings.TrimSpace(raw.ProductName); v != "" {
		cfg.ProductName = v
	}
	if v := strings.TrimSpace(raw.IntroMarkdown); v != "" {
		cfg.IntroMarkdown = v
	}
	return cfg
}

// finalize normalises sub-configs and derives the resolved DSN and Redis URL.
func finalize(cfg *AppConfig) {
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Mail = normalizeMailConfig(cfg.Mail)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Env = normalizeEnv(cfg.Env)
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = defaultServiceName
	}
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return resolveRuntimePath("", "logs")
	}
	return resolveRuntimePath(c.Paths.Logs, "logs")
}

// ProbeTimeout returns the per-dependency health probe timeout.
func (c *AppConfig) ProbeTimeout() time.Duration {
	if c == nil || c.Health.ProbeTimeoutMS <= 0 {
		return defaultProbeTimeout * time.Millisecond
	}
	return time.Duration(c.Health.ProbeTimeoutMS) * time.Millisecond
}
