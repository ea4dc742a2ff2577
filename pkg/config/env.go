package config

const EnvPrefix = "KDS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "KDS_APP_ENV"
	EnvPort       = "KDS_APP_PORT"
	EnvLocationID = "KDS_LOCATION_ID"

	EnvBoardStations       = "KDS_BOARD_STATIONS"
	EnvBoardTickInterval   = "KDS_BOARD_TICK_INTERVAL"
	EnvBoardBatchThreshold = "KDS_BOARD_BATCH_THRESHOLD"

	EnvIntakeMode    = "KDS_INTAKE_MODE"
	EnvIntakeBaseURL = "KDS_INTAKE_BASE_URL"

	EnvRedisURL  = "KDS_REDIS_URL"
	EnvRedisAddr = "KDS_REDIS_ADDR"
	EnvDBDSN     = "KDS_DB_DSN"
	EnvDBDriver  = "KDS_DB_DRIVER"
	EnvNATSURL   = "KDS_NATS_URL"
)

const (
	IntakeModeDemo = "demo"
	IntakeModeHTTP = "http"
	IntakeModeNone = "none"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)
