package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"taskhive/authz"
	"taskhive/cache"
	"taskhive/config"
	"taskhive/middleware"
	"taskhive/routes"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadConfig(); err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if config.AppConfig.Environment == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if config.AppConfig.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	config.ConnectRedis()

	store := authz.NewGormStore(config.DB)

	// Fail fast if the seeded permission catalog is incomplete; a missing
	// permission would otherwise surface as silent denials.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := authz.ValidateCatalog(ctx, store); err != nil {
		cancel()
		logger.WithError(err).Fatal("permission catalog validation failed")
	}
	cancel()

	engine := authz.NewEngine(store)
	cacheStore := cache.New(config.Redis)

	app := fiber.New(fiber.Config{
		AppName: "taskhive",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				sentry.CaptureException(err)
				logger.WithError(err).WithField("path", c.Path()).Error("request failed")
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(middleware.CORS())
	if config.AppConfig.Environment == "development" {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.SetupRoutes(app, config.DB, engine, cacheStore, logger)

	logger.WithField("port", config.AppConfig.ServerPort).Info("starting server")
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
