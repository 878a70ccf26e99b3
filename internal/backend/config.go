package backend

import (
	"fmt"

	"fintrack/internal/config"
)

const defaultCacheSize = 1000

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cacheType := CacheType(appConfig.CacheBackend)
	if !cacheType.IsValid() {
		return Config{}, fmt.Errorf("invalid cache backend in config: %s (want one of %v)", appConfig.CacheBackend, GetCacheTypes())
	}

	return Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,

		SessionSecret: appConfig.SessionSecret,
		SessionTTL:    appConfig.SessionTTL,

		Cache:         cacheType,
		CacheTTL:      appConfig.CacheTTL,
		CacheSize:     defaultCacheSize,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		DefaultCurrency: appConfig.DefaultCurrency,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if !c.Cache.IsValid() {
		return fmt.Errorf("invalid cache type: %s", c.Cache)
	}
	if c.Cache == RedisCache && c.RedisAddr == "" {
		return fmt.Errorf("redis address is required for redis cache")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}

// GetCacheTypes returns all valid cache types
func GetCacheTypes() []CacheType {
	return []CacheType{MemoryCache, RedisCache}
}
