package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/slotsync/modules/analytics"
	"github.com/example/slotsync/modules/api"
	"github.com/example/slotsync/modules/broadcast"
	"github.com/example/slotsync/modules/schedule"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== SlotSync - Real-Time Availability Coordination ===")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	scheduleModule, err := schedule.NewModule(app.Logger())
	if err != nil {
		log.Fatalf("Failed to create schedule module: %v", err)
	}
	analyticsModule := analytics.NewModule(app.Logger())
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(api.Config{
		Addr:               cfg.addr(),
		PublicBaseURL:      cfg.PublicBaseURL,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, scheduleModule, analyticsModule.Store(), app.Logger())

	// Inject broadcast hub into API module
	// (This is done manually because the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - schedule: Core domain (event store, aggregation, event emitter)
	// - analytics: Event consumer (usage counters)
	// - broadcast: Event consumer (WebSocket fan-out hub)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on schedule)
	app.Register(scheduleModule)
	app.Register(analyticsModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg AppConfig) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Event Flow:")
	log.Println("  - SlotsUpdated events -> broadcast module -> WebSocket clients")
	log.Println("  - SlotsUpdated / EventCreated events -> analytics module -> counters")
	log.Println("")
	log.Printf("REST API Endpoints (http://%s):", cfg.addr())
	log.Println("  GET    /health              - Health check")
	log.Println("  POST   /api/v1/events       - Create a coordination event")
	log.Println("  GET    /api/v1/events/:id   - Get event with aggregate counts")
	log.Println("  GET    /api/v1/stats        - Usage counters")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://%s/ws):", cfg.addr())
	log.Println("  Message types: joinEvent, updateSlots")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
