package config

const (
	EnvPrefix = "BULLION"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "BULLION_APP_ENV"
	EnvPort       = "BULLION_APP_PORT"
	EnvDBDSN      = "BULLION_DB_DSN"
	EnvDBHost     = "BULLION_DB_HOST"
	EnvDBUser     = "BULLION_DB_USER"
	EnvDBName     = "BULLION_DB_NAME"
	EnvRedisURL   = "BULLION_REDIS_URL"
	EnvJWTSecret  = "BULLION_JWT_SECRET"
	EnvJWTIssuer  = "BULLION_JWT_ISSUER"
	EnvJWTExpMins = "BULLION_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
