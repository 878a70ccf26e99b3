package backend

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// CleanupFunc releases a resource acquired while building a backend.
type CleanupFunc func() error

// Backend bundles the services the HTTP server and the admin CLI share.
type Backend struct {
	Store        *storage.SQLiteRepository
	Issuer       *auth.Issuer
	Dashboards   *services.DashboardService
	Transactions *services.TransactionService
	Accounts     *services.AccountService
	Reports      *services.ReportService
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client

	cleanups []CleanupFunc
}

func (b *Backend) onClose(fn CleanupFunc) {
	b.cleanups = append(b.cleanups, fn)
}

// Close runs cleanups in reverse acquisition order and joins their errors.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanups = nil
	if len(errs) > 0 {
		return fmt.Errorf("close backend: %w", errors.Join(errs...))
	}
	return nil
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath string

	SessionSecret string
	SessionTTL    time.Duration

	Cache         CacheType
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	DefaultCurrency string
}

// CacheType selects where dashboards are cached.
type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)

// String implements fmt.Stringer
func (ct CacheType) String() string {
	return string(ct)
}

// IsValid returns true if the cache type is valid
func (ct CacheType) IsValid() bool {
	switch ct {
	case MemoryCache, RedisCache:
		return true
	default:
		return false
	}
}
