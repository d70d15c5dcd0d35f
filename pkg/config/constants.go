package config

// EnvPrefix namespaces every environment variable consumed by the client.
const EnvPrefix = "localbuy"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Environment variable names referenced in error messages and tests.
const (
	EnvAppEnv     = "LOCALBUY_APP_ENV"
	EnvDBDriver   = "LOCALBUY_DB_DRIVER"
	EnvDBPath     = "LOCALBUY_DB_PATH"
	EnvDBDSN      = "LOCALBUY_DB_DSN"
	EnvRedisURL   = "LOCALBUY_REDIS_URL"
	EnvAPIBaseURL = "LOCALBUY_API_BASE_URL"
)
