package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "MES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "MES_APP_ENV"
	EnvPort     = "MES_APP_PORT"
	EnvLogLevel = "MES_LOG_LEVEL"

	EnvDBDSN  = "MES_DB_DSN"
	EnvDBHost = "MES_DB_HOST"
	EnvDBUser = "MES_DB_USER"
	EnvDBName = "MES_DB_NAME"

	EnvRedisURL = "MES_REDIS_URL"

	EnvGCPProjectID = "MES_GCP_PROJECT_ID"

	EnvPubSubManufacturingTopic = "MES_PUBSUB_MANUFACTURING_TOPIC"
	EnvPubSubManufacturingSub   = "MES_PUBSUB_MANUFACTURING_SUBSCRIPTION"
	EnvPubSubInventoryTopic     = "MES_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubInventorySub       = "MES_PUBSUB_INVENTORY_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
