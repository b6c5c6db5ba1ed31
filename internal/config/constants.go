package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort         = 8000
	defaultEnv          = "development"
	defaultServiceName  = "ScanLedger Backend"
	defaultProductName  = "ScanLedger"
	defaultDBDriver     = DriverMySQL
	defaultDBHost       = "127.0.0.1"
	defaultDBPort       = 3306
	defaultPGPort       = 5432
	defaultDBUser       = "root"
	defaultDBPassword   = "password"
	defaultDBName       = "waitlist"
	defaultDBCharset    = "utf8mb4"
	defaultDBLoc        = "Local"
	defaultPGSSLMode    = "disable"
	defaultRedisHost    = "localhost"
	defaultRedisPort    = 6379
	defaultRedisDB      = 0
	defaultMailPort     = 587
	defaultQueueWorkers = 4
	defaultQueueSize    = 1024
	defaultProbeTimeout = 3000 // milliseconds
)

// Supported relational drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)
