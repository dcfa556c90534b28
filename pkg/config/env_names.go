package config

const (
	EnvPrefix = "MKTCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MKTCART_DB_DSN"
	EnvDBHost = "MKTCART_DB_HOST"
	EnvDBUser = "MKTCART_DB_USER"
	EnvDBName = "MKTCART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
