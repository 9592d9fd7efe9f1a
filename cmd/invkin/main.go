package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/open-teleop/invkin/domain/control"
	"github.com/open-teleop/invkin/domain/diagnostic"
	"github.com/open-teleop/invkin/pkg/api"
	"github.com/open-teleop/invkin/pkg/config"
	customlog "github.com/open-teleop/invkin/pkg/log"
	"github.com/open-teleop/invkin/pkg/processing"
	"github.com/open-teleop/invkin/pkg/urdf"
	"github.com/open-teleop/invkin/pkg/zeromq"
	"github.com/open-teleop/invkin/services"
)

const poseStreamInterval = 50 * time.Millisecond

func main() {
	app := &cli.App{
		Name:  "invkin",
		Usage: "kinematic controller for a 7-joint manipulator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "./config",
				Usage:   "directory containing " + config.BootstrapFileName,
				EnvVars: []string{"INVKIN_CONFIG_DIR"},
			},
			&cli.StringFlag{
				Name:  "robot-description",
				Usage: "URDF file, overrides data.robot_description_file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides logging.level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "invkin: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	bootstrap, err := config.LoadBootstrapConfig(c.String("config-dir"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		bootstrap.Logging.Level = lvl
	}

	baseLogger, err := customlog.NewLogrusLogger(bootstrap.Logging.Level, bootstrap.Logging.LogPath)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger := baseLogger.WithField("run_id", runID)
	logger.Infof("Starting invkin controller")

	configService, err := services.NewControlConfigService(bootstrap.Data.ControlConfigPath(), logger)
	if err != nil {
		logger.Fatalf("Failed to load control configuration: %v", err)
	}
	cfg := configService.GetCurrentConfig()

	urdfPath := bootstrap.Data.RobotDescriptionPath()
	if p := c.String("robot-description"); p != "" {
		urdfPath = p
	}
	chain, err := urdf.LoadChainFile(urdfPath, cfg.Robot.BaseLink, cfg.Robot.TipLink)
	if err != nil {
		logger.Fatalf("Failed to load kinematic chain: %v", err)
	}
	logger.Infof("Joints and segments: %d - %d", chain.NumJoints(), chain.NumSegments())

	registry := processing.NewTopicRegistry(logger)
	registry.LoadFromConfig(cfg)

	zmqService, err := zeromq.NewZeroMQService(bootstrap.ZeroMQ, logger.WithField("component", "zeromq"))
	if err != nil {
		logger.Fatalf("Failed to create ZeroMQ service: %v", err)
	}
	defer func() {
		if err := zmqService.Close(); err != nil {
			logger.Errorf("Error closing ZeroMQ service: %v", err)
		}
	}()

	clk := clock.New()
	bridge := zeromq.NewRobotBridge(zmqService, cfg.Topics, registry, clk, logger)
	diagnosticService := diagnostic.NewDiagnosticService(runID)

	var (
		signals []control.StartSignal
		trigger *control.ManualTrigger
	)
	if cfg.Operator.HasSource(config.OperatorSourceStdin) {
		signals = append(signals, control.NewLineConfirmation(os.Stdin, os.Stdout, cfg.Operator.Prompt))
	}
	if cfg.Operator.HasSource(config.OperatorSourceHTTP) {
		trigger = control.NewManualTrigger()
		signals = append(signals, trigger)
	}

	controller, err := control.NewController(chain, cfg, bridge, control.AnySignal(signals), diagnosticService, logger, clk)
	if err != nil {
		logger.Fatalf("Failed to create controller: %v", err)
	}

	if err := zmqService.RegisterHandler(cfg.Topics.JointStates, bridge.FeedbackHandler(controller.HandleFeedback)); err != nil {
		logger.Fatalf("Failed to subscribe to %s: %v", cfg.Topics.JointStates, err)
	}
	zmqService.OnMessage(bridge.RecordReceived)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpApp *fiber.App
	if bootstrap.Server.HTTPPort > 0 {
		httpApp = newHTTPApp(controller, trigger, registry, configService, diagnosticService, logger)
		go func() {
			addr := fmt.Sprintf(":%d", bootstrap.Server.HTTPPort)
			logger.Infof("Server starting on %s", addr)
			if err := httpApp.Listen(addr); err != nil {
				logger.Errorf("HTTP server stopped: %v", err)
			}
		}()
	}

	controlErr := make(chan error, 1)
	go func() {
		err := controller.Run(ctx)
		controlErr <- err
		if err != nil {
			stop()
		}
	}()

	// the transport loop runs in the foreground until shutdown
	if err := zmqService.Run(ctx); err != nil {
		logger.Errorf("ZeroMQ receive loop failed: %v", err)
		stop()
	}
	logger.Infof("Shutting down")

	runErr := <-controlErr

	if httpApp != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpApp.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Errorf("Server forced to shutdown: %v", err)
		}
	}

	if runErr != nil {
		return errors.Wrap(runErr, "control loop")
	}
	logger.Infof("Controller exited properly")
	return nil
}

func newHTTPApp(controller *control.Controller, trigger *control.ManualTrigger, registry *processing.TopicRegistry,
	configService services.ControlConfigService, diagnosticService *diagnostic.DiagnosticService, logger customlog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "invkin controller",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Get("/api/v1/diagnostics", diagnosticService.GetMetricsHandler)
	api.RegisterControlRoutes(app, controller, trigger, registry, logger)
	api.RegisterConfigRoutes(app, configService, logger)
	api.RegisterPoseStream(app, controller.State(), poseStreamInterval, logger)

	return app
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
