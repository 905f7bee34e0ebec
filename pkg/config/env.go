package config

const (
	EnvDotEnvFile = "DOTENV_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultTimeZone        = "DEFAULT_TIME_ZONE"
	EnvDefaultDisplayTimeZone = "DEFAULT_DISPLAY_TIME_ZONE"
	EnvDefaultCompanyID       = "DEFAULT_COMPANY_ID"
	EnvAvailabilityPadding    = "AVAILABILITY_PADDING"

	EnvLockBackend = "LOCK_BACKEND"
	EnvLockTTL     = "LOCK_TTL"

	EnvRedisAddr        = "REDIS_ADDR"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvRedisDB          = "REDIS_DB"
	EnvRedisConnTimeout = "REDIS_CONN_TIMEOUT"

	EnvCalendarSyncEnabled  = "CALENDAR_SYNC_ENABLED"
	EnvCalendarSyncTopic    = "CALENDAR_SYNC_TOPIC"
	EnvCalendarSyncDLQTopic = "CALENDAR_SYNC_DLQ_TOPIC"
	EnvCalendarSyncGroupID  = "CALENDAR_SYNC_GROUP_ID"
)
