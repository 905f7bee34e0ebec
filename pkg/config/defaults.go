package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medsched"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Second
	DefaultRateLimitBurst    = 20

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTimeZone            = "UTC"
	DefaultDisplayTimeZone     = ""
	DefaultCompanyID           = "default"
	DefaultAvailabilityPadding = 24 * time.Hour

	LockBackendMongo   = "mongo"
	LockBackendRedis   = "redis"
	DefaultLockBackend = LockBackendMongo
	DefaultLockTTL     = 10 * time.Second

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDB          = 0
	DefaultRedisConnTimeout = 5 * time.Second

	DefaultCalendarSyncEnabled  = false
	DefaultCalendarSyncTopic    = "calendar-sync"
	DefaultCalendarSyncDLQTopic = "calendar-sync-dlq"
	DefaultCalendarSyncGroupID  = "calendar-mirror"

	DefaultPaginationLimit = 100
)
