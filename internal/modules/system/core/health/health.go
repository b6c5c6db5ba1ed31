package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scanledger/waitlist/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusOK        = "ok"
	StatusConnected = "connected"

	defaultProbeTimeout = 3 * time.Second
)

// Probe checks that one dependency is reachable.
type Probe func(ctx context.Context) error

// Report is the /health body. Status is always "ok"; the dependency fields
// carry "connected" or "error: <reason>".
type Report struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
	Store  string `json:"store"`
}

type Reporter struct {
	cache   Probe
	store   Probe
	timeout time.Duration
	logger  *zap.Logger
}

func NewReporter(cache, store Probe, timeout time.Duration, logger *zap.Logger) *Reporter {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{cache: cache, store: store, timeout: timeout, logger: logger.Named("health")}
}

// Check runs both probes concurrently. A failing probe never affects the other.
func (r *Reporter) Check(ctx context.Context) Report {
	var (
		wg           sync.WaitGroup
		cache, store string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cache = r.run(ctx, "cache", r.cache)
	}()
	go func() {
		defer wg.Done()
		store = r.run(ctx, "store", r.store)
	}()
	wg.Wait()

	return Report{Status: StatusOK, Cache: cache, Store: store}
}

func (r *Reporter) run(ctx context.Context, name string, probe Probe) (status string) {
	if probe == nil {
		return "error: not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("probe panicked", zap.String("dependency", name), zap.Any("panic", p))
			status = fmt.Sprintf("error: %v", p)
		}
	}()

	if err := probe(ctx); err != nil {
		r.logger.Warn("dependency unreachable", zap.String("dependency", name), zap.Error(err))
		return "error: " + err.Error()
	}
	return StatusConnected
}

func (r *Reporter) RegisterRoutes(rg gin.IRouter) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Check(c.Request.Context()))
	})
}

// CacheProbe pings the Redis server at url with a short-lived client.
func CacheProbe(url string) Probe {
	return func(ctx context.Context) error {
		return redis.Probe(ctx, url)
	}
}

// StoreProbe pings the database over a dedicated pooled connection, which is
// returned to the pool whether or not the ping succeeds.
func StoreProbe(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database is not connected")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.PingContext(ctx)
	}
}
