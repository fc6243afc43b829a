// Package api exposes the task lifecycle, catalog and leaderboard over HTTP.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/catalog"
	"github.com/jakechorley/helping-hands/pkg/core/lifecycle"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// Server wires HTTP routes to the core services
type Server struct {
	app       *fiber.App
	database  db.Database
	lifecycle *lifecycle.Lifecycle
	catalog   *catalog.Catalog
	logger    *zap.Logger
}

// NewServer builds the fiber app and registers every route
func NewServer(database db.Database, lc *lifecycle.Lifecycle, logger *zap.Logger) *Server {
	s := &Server{
		database:  database,
		lifecycle: lc,
		catalog:   catalog.New(database),
		logger:    logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "helping-hands",
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger(logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       300,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Post("/users", s.registerUser)
	s.app.Get("/users/:id", s.getUser)

	tasks := s.app.Group("/tasks")
	tasks.Post("/", s.createTask)
	tasks.Post("/series", s.createSeries)
	tasks.Get("/", s.listTasks)
	tasks.Get("/:id", s.getTask)
	tasks.Delete("/:id", s.deleteTask)
	tasks.Post("/:id/assign", s.assignTask)
	tasks.Post("/:id/start", s.startTask)
	tasks.Post("/:id/volunteer-confirm", s.volunteerConfirm)
	tasks.Post("/:id/elderly-confirm", s.elderlyConfirm)
	tasks.Post("/:id/reassign", s.reassignTask)
	tasks.Post("/:id/cancel", s.cancelTask)

	s.app.Get("/leaderboard", s.getLeaderboard)
}

// App returns the underlying fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// requestLogger logs one line per request at Debug, or Warn for server errors
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn("HTTP request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("HTTP request", fields...)
		}
		return err
	}
}
