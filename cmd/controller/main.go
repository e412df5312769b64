package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/openpnp-go/controller/domain/diagnostic"
	"github.com/openpnp-go/controller/domain/motion"
	"github.com/openpnp-go/controller/pkg/api"
	"github.com/openpnp-go/controller/pkg/config"
	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/journal"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/openpnp-go/controller/pkg/processing"
	"github.com/openpnp-go/controller/pkg/zeromq"
	"github.com/openpnp-go/controller/services"
)

const defaultConfigDir = "./config"

func main() {
	configDirFlag := flag.String("config", "", "Directory containing controller_config.yaml")
	flag.Parse()

	configDir := *configDirFlag
	if configDir == "" {
		configDir = os.Getenv("CONFIG_DIR")
	}
	if configDir == "" {
		configDir = defaultConfigDir
	}

	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load bootstrap configuration: %v", err)
	}

	appLogger, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger.Infof("Bootstrap configuration loaded from %s", configDir)

	// Machine description
	configService, err := services.NewMachineConfigService(bootstrapCfg.MachineConfigPath(), appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create machine config service: %v", err)
	}

	registry := machine.NewRegistry(appLogger)
	driverCfg := config.DriverConfig{Type: driver.NullBackend}
	if cfg := configService.GetCurrentConfig(); cfg != nil {
		if err := registry.LoadFromConfig(cfg); err != nil {
			appLogger.Fatalf("Failed to load machine configuration: %v", err)
		}
		driverCfg = cfg.Driver
	} else {
		appLogger.Warnf("No machine configuration loaded; starting with an empty machine")
	}
	configService.SetListener(func(cfg *config.Config) error {
		if cfg.Driver != driverCfg {
			appLogger.Warnf("Driver settings changed; restart the controller to apply them")
		}
		return registry.LoadFromConfig(cfg)
	})

	// Driver backend, optionally journaled
	drv, err := driver.New(driverCfg, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create driver: %v", err)
	}
	var journalWriter *journal.Writer
	if path := bootstrapCfg.Journal.Path; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			appLogger.Fatalf("Failed to open command journal '%s': %v", path, err)
		}
		journalWriter = journal.NewWriter(f)
		drv = journal.Wrap(drv, journalWriter, appLogger)
		appLogger.Infof("Recording driver commands to %s", path)
	}
	appLogger.Infof("Using driver backend '%s'", driver.Name(drv))

	director := processing.NewDirector(drv, appLogger, registry, &processing.DirectorOptions{
		Lanes:     bootstrapCfg.Processing.Lanes,
		QueueSize: bootstrapCfg.Processing.QueueSize,
	})

	// ZeroMQ request and publish sockets
	zmqService, err := zeromq.NewZeroMQService(bootstrapCfg, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create ZeroMQ service: %v", err)
	}
	configPublisher := zeromq.RegisterConfigHandlers(zmqService, configService, appLogger)
	configService.SetPublisher(configPublisher)
	zeromq.RegisterCommandHandlers(zmqService, registry, director, appLogger)

	resultHandler := processing.NewLoggingResultHandler(appLogger, zeromq.NewLocationPublisher(zmqService, appLogger))
	director.SetResultHandler(resultHandler.CreateHandlerFunc())
	director.Start()

	if err := zmqService.Start(); err != nil {
		appLogger.Fatalf("Failed to start ZeroMQ service: %v", err)
	}

	// HTTP and websocket
	app := fiber.New(fiber.Config{
		AppName:      "PnP Motion Controller",
		ErrorHandler: customErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "pnp motion controller",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	diagnosticService := diagnostic.NewDiagnosticService(registry, director)
	app.Get("/api/diagnostics", diagnosticService.GetMetricsHandler)

	motion.NewMotionService(registry, director, appLogger).RegisterRoutes(app.Group("/api/v1"))
	api.RegisterConfigRoutes(app, configService, appLogger)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jog", websocket.New(func(c *websocket.Conn) {
		api.JogWebSocketHandler(c, appLogger, registry, director)
	}))

	go func() {
		addr := fmt.Sprintf(":%d", bootstrapCfg.Server.HTTPPort)
		appLogger.Infof("Server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}
	zmqService.Stop()
	director.Stop()
	if journalWriter != nil {
		if err := journalWriter.Close(); err != nil {
			appLogger.Errorf("Failed to close command journal: %v", err)
		}
	}

	appLogger.Infof("Controller exited properly")
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
