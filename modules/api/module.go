package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	domain "github.com/example/slotsync/domain/schedule"
	"github.com/example/slotsync/modules/analytics"
	"github.com/example/slotsync/modules/broadcast"
	scheduling "github.com/example/slotsync/modules/schedule"
)

const localBaseURL = "baseURL"

// Config holds the HTTP server configuration.
type Config struct {
	Addr string
	// PublicBaseURL overrides share link resolution when the server sits
	// behind a proxy that does not forward the original host.
	PublicBaseURL      string
	CORSAllowedOrigins string
}

// ScheduleService is the scheduling surface the API depends on.
type ScheduleService interface {
	CreateEvent(title string) (domain.Event, error)
	GetEvent(eventID string) (domain.Event, domain.Aggregate, error)
	EventSnapshot(eventID, participantID string) (scheduling.Snapshot, error)
	UpdateSlots(eventID, participantID string, candidates []any) (scheduling.UpdateResult, error)
}

// Module serves the REST API and the WebSocket endpoint.
type Module struct {
	cfg      Config
	app      *fiber.App
	schedule ScheduleService
	stats    *analytics.Store
	hub      *broadcast.Hub
	validate *validator.Validate
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the API module.
func NewModule(cfg Config, scheduleSvc ScheduleService, stats *analytics.Store, logger types.Logger) *Module {
	return &Module{
		cfg:      cfg,
		schedule: scheduleSvc,
		stats:    stats,
		validate: validator.New(),
		logger:   logger,
	}
}

// Name returns the module name
func (m *Module) Name() string {
	return "api"
}

// SetHub wires the broadcast hub the WebSocket endpoint registers clients with.
// Must be called before Start.
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start initializes and starts the HTTP server
func (m *Module) Start(ctx context.Context) error {
	if err := m.buildApp(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("API server listening", "addr", m.cfg.Addr)
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	// Give the listener a moment to surface bind errors
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start API server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// buildApp assembles the Fiber app, middleware, and routes.
func (m *Module) buildApp() error {
	if m.hub == nil {
		return fmt.Errorf("api module: broadcast hub not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "slotsync-api",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
		Next: func(c *fiber.Ctx) bool {
			// WebSocket connections are long-lived, skip request logging
			return websocket.IsWebSocketUpgrade(c)
		},
	}))

	m.setupRoutes()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Stopping API server")
	return m.app.ShutdownWithContext(ctx)
}

// Health reports the API server status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "server not started",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

func (m *Module) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	v1 := m.app.Group("/api/v1")
	v1.Post("/events", m.createEvent)
	v1.Get("/events/:id", m.getEvent)
	v1.Get("/stats", m.getStats)

	// The upgrade middleware captures request-scoped data the websocket
	// handler can no longer reach once the connection is hijacked.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(localBaseURL, m.resolveBaseURL(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))
}

func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:   "request failed",
		Message: err.Error(),
	})
}

// resolveBaseURL picks the externally visible origin for share links:
// configured override first, then proxy forwarding headers, then the
// request itself.
func (m *Module) resolveBaseURL(c *fiber.Ctx) string {
	if m.cfg.PublicBaseURL != "" {
		return strings.TrimRight(m.cfg.PublicBaseURL, "/")
	}
	proto := c.Get("X-Forwarded-Proto")
	if proto != "" {
		proto = strings.TrimSpace(strings.Split(proto, ",")[0])
	} else {
		proto = c.Protocol()
	}
	host := c.Get("X-Forwarded-Host")
	if host == "" {
		host = c.Hostname()
	}
	return proto + "://" + host
}

func shareLink(baseURL, eventID string) string {
	return baseURL + "/event/" + eventID
}
