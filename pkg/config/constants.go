package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "olly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "OLLY_DB_DSN"
	EnvDBHost = "OLLY_DB_HOST"
	EnvDBUser = "OLLY_DB_USER"
	EnvDBName = "OLLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
