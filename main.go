package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"i4.energy/across/telenode/clock"
	"i4.energy/across/telenode/mirror"
	"i4.energy/across/telenode/modem"
	"i4.energy/across/telenode/node"
	"i4.energy/across/telenode/sensor"
	"i4.energy/across/telenode/store"
)

// reportThreshold is the number of cycles averaged into one report.
const reportThreshold = 12

func main() {
	configFile := flag.String("config", "", "Path to an HCL configuration file")
	flag.String("serial-port", "/dev/ttyS1", "Serial port to connect to the modem")
	flag.Int("baud-rate", 9600, "Baud rate for serial communication")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("store-path", "/var/lib/telenode/config.bin", "File backing the persistent configuration")
	flag.String("customer-id", "", "Customer ID used until one is set by SMS")
	flag.String("bind-address", "", "Bind address for the status endpoint (disabled when empty)")
	flag.String("mqtt-broker", "", "MQTT broker reports are mirrored to (disabled when empty)")
	flag.Duration("tick-interval", node.DefaultTickInterval, "Period of the control loop")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	cells, err := store.OpenFileCells(config.StorePath, store.LayoutV1.Size)
	if err != nil {
		logger.Error("Failed to open configuration store", "error", err, "path", config.StorePath)
		os.Exit(1)
	}
	defer cells.Close()

	record := store.New(cells, store.Config{
		Numbers:    config.Numbers,
		CustomerID: config.CustomerID,
	}, reportThreshold, logger.With("component", "store"))
	if err := record.Load(); err != nil {
		if !errors.Is(err, store.ErrUnknownVersion) {
			logger.Error("Failed to load configuration store", "error", err)
			os.Exit(1)
		}
		logger.Warn("Configuration store has an unknown layout, running on defaults without persisting", "error", err)
	}

	cycle := sensor.CycleConfig{
		Interval:  config.CycleInterval,
		Threshold: reportThreshold,
	}

	if config.MQTTBroker != "" {
		client, err := mirror.Dial(mirror.Options{
			Broker:   config.MQTTBroker,
			ClientID: config.MQTTClientID,
			Topic:    config.MQTTTopic,
		}, record, logger.With("component", "mirror"))
		if err != nil {
			// Reports still go out by SMS.
			logger.Warn("MQTT mirror unavailable", "error", err, "broker", config.MQTTBroker)
		} else {
			defer client.Close()
			cycle.OnReport = client.Publish
		}
	}

	n := node.New(node.Options{
		Clock:  clock.NewSystem(),
		Logger: logger,
		Modem:  modemConfig,
		Store:  record,
		Pair:   sensor.IIOHumidity{Dir: config.HumidityDevice},
		Probe:  sensor.NewW1Probe(config.ProbeDevice),
		Cycle:  cycle,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpServer *http.Server
	if config.BindAddress != "" {
		httpServer = &http.Server{
			Addr: config.BindAddress,
			Handler: &Server{
				Logger: logger.With("component", "server"),
				Status: n.Status,
			},
		}

		// Start HTTP server in a goroutine
		go func() {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed", "error", err)
				stop()
			}
		}()
	}

	logger.Info("Starting telemetry node", "serial_port", config.SerialPort, "store", config.StorePath)
	if err := n.Run(ctx, config.TickInterval); err != nil {
		logger.Error("Node stopped with error", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info("Closing HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to gracefully shutdown server", "error", err)
		}
	}
}
