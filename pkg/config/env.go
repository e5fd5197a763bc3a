package config

// EnvPrefix is applied by envconfig when struct tags omit an explicit name.
const EnvPrefix = "PHONELOT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PHONELOT_DB_DSN"
	EnvDBHost = "PHONELOT_DB_HOST"
	EnvDBUser = "PHONELOT_DB_USER"
	EnvDBName = "PHONELOT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
