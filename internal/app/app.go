package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scanledger/waitlist/internal/config"
	"github.com/scanledger/waitlist/internal/database"
	"github.com/scanledger/waitlist/internal/middleware"
	"github.com/scanledger/waitlist/internal/modules/system/core/health"
	"github.com/scanledger/waitlist/internal/modules/waitlist"
	pkgmail "github.com/scanledger/waitlist/internal/pkg/mail"
	"github.com/scanledger/waitlist/internal/pkg/metrics"
	"github.com/scanledger/waitlist/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	logger  *zap.Logger
	queue   *taskqueue.Queue
	metrics *metrics.Metrics

	waitlist *waitlist.Handler
	health   *health.Reporter
}

// New initializes the application: config → DB → task queue → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	mailer := pkgmail.New(pkgmail.BuildMailConfig(cfg))
	if !mailer.Enabled() {
		logger.Warn("mail is disabled, confirmation emails will not be sent")
	}
	return build(logger, cfg, db, mailer), nil
}

func build(logger *zap.Logger, cfg *config.AppConfig, db *gorm.DB, mailer waitlist.Mailer) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()

	queue := taskqueue.New(logger, cfg.Queue.Workers, cfg.Queue.Size, m)
	queue.Start()

	notifier := waitlist.NewMailNotifier(mailer, cfg.Mail.ProductName, cfg.Mail.IntroMarkdown)
	svc := waitlist.NewService(waitlist.NewStore(db), queue, notifier, logger, m)

	a := &App{
		cfg:      cfg,
		router:   newRouter(logger, cfg, m),
		db:       db,
		logger:   logger,
		queue:    queue,
		metrics:  m,
		waitlist: waitlist.NewHandler(svc),
		health: health.NewReporter(
			health.CacheProbe(cfg.RedisURL),
			health.StoreProbe(db),
			cfg.ProbeTimeout(),
			logger,
		),
	}
	a.registerRoutes()
	return a
}

func newRouter(logger *zap.Logger, cfg *config.AppConfig, m *metrics.Metrics) *gin.Engine {
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger, m))
	router.Use(corsMiddleware(cfg))
	return router
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown drains pending confirmation mails and closes the database pool.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.queue.Shutdown(ctx)
	if err != nil {
		a.logger.Warn("task queue did not drain", zap.Error(err))
	}
	if sqlDB, dbErr := a.db.DB(); dbErr == nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}
	return err
}
