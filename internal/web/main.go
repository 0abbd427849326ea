// Package web wires the fiber application: middleware, routes and the
// server life cycle.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/blobstore"
	"github.com/silkcms/silk-admin/internal/config"
	fiberlogger "github.com/silkcms/silk-admin/internal/logger/adapter/fiber"
	"github.com/silkcms/silk-admin/internal/web/handler"
	"github.com/silkcms/silk-admin/internal/web/handler/admin/role"
	"github.com/silkcms/silk-admin/internal/web/handler/admin/user"
	"github.com/silkcms/silk-admin/internal/web/handler/login"
	"github.com/silkcms/silk-admin/internal/web/handler/logout"
	"github.com/silkcms/silk-admin/internal/web/handler/webcontent"
)

// HealthPath is the unauthenticated liveness route.
const HealthPath = "/health"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so the health check returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "silk-admin",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// access log middleware
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: HealthPath,
	}))

	// serve stored images
	app.Static("/storage", cfg.Webserver.UploadDir)

	authService := auth.NewService(db)
	blobs := blobstore.New(cfg.Webserver.UploadDir, cfg.Webserver.URL)

	// init web service
	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}
	service.alive.Store(true)

	app.Get(HealthPath, service.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// init handlers (they register their own routes with permission checks)
	login.Handler.Init(app, cfg, db, authService, blobs)
	logout.Handler.Init(app, cfg, authService)
	user.Handler.Init(app, cfg, db, authService, blobs)
	role.Handler.Init(app, cfg, db, authService)
	webcontent.Handler.Init(app, cfg, db, authService, blobs)

	return service
}

// health implements the liveness route. During graceful shutdown it turns
// unhealthy so load balancers drain the instance.
func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return handler.FailStatus(c, fiber.StatusServiceUnavailable, "shutting down")
	}

	return handler.OK(c, "ok", nil)
}

// errorHandler renders every error escaping the middleware chain as the
// uniform envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Something went wrong!"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code

		switch code {
		case fiber.StatusUnauthorized:
			message = auth.MsgUnauthorized
		case fiber.StatusNotFound:
			message = "The route you are trying to access does not exist or requires authentication."
		case fiber.StatusMethodNotAllowed:
			message = "HTTP method not allowed for this route."
		default:
			message = fiberErr.Message
		}
	}

	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}

	return c.Status(code).JSON(handler.Envelope{
		Status:  false,
		Message: message,
	})
}
