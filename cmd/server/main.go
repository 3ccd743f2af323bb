package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/whisperx-api/internal/application"
	"github.com/eugenenazirov/whisperx-api/internal/config"
	"github.com/eugenenazirov/whisperx-api/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("whisperx-api", "WhisperX transcription API server")
	envFile := kingpinApp.Flag("env-file", "Path to the dotenv file (empty to skip)").Default(config.DefaultEnvFile).String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP server").Default()
	configCmd := kingpinApp.Command("config", "Print the resolved settings and exit")
	format := configCmd.Flag("format", "Output format").Default("yaml").Enum("yaml", "json")
	legacy := configCmd.Flag("legacy", "Print the flat legacy view instead").Bool()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	resolver := config.NewResolver(
		config.WithEnvFile(*envFile),
		config.WithOverrides(buildOverrides(*port, *rateLimitRPSFlag, *rateLimitBurstFlag)),
	)
	settings, err := resolver.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case configCmd.FullCommand():
		if err := printSettings(os.Stdout, resolver, *format, *legacy); err != nil {
			fmt.Fprintf(os.Stderr, "failed to print configuration: %v\n", err)
			os.Exit(1)
		}
	case serveCmd.FullCommand():
		serve(settings)
	}
}

func serve(settings *config.Settings) {
	logger, err := logging.New(settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logCorrections(logger, settings.Corrections())

	app, err := application.New(context.Background(), settings, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), settings.Server.ShutdownGracePeriod, logger)
	if err := app.Close(); err != nil {
		logger.Error("failed to release resources", zap.Error(err))
	}
}

// buildOverrides turns the CLI flags into overrides. Negative rate values mean
// the flag was not given.
func buildOverrides(port string, rateLimitRPS float64, rateLimitBurst int) *config.CLIOverrides {
	overrides := &config.CLIOverrides{}
	if port != "" {
		overrides.Port = &port
	}
	if rateLimitRPS >= 0 {
		overrides.RateLimitRPS = &rateLimitRPS
	}
	if rateLimitBurst >= 0 {
		overrides.RateLimitBurst = &rateLimitBurst
	}
	return overrides
}

func printSettings(w io.Writer, resolver *config.Resolver, format string, legacy bool) error {
	var payload any
	if legacy {
		view, err := resolver.Legacy()
		if err != nil {
			return err
		}
		payload = view.Map()
	} else {
		settings, err := resolver.Settings()
		if err != nil {
			return err
		}
		payload = settings
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	return enc.Close()
}

func logCorrections(logger *zap.Logger, corrections []config.Correction) {
	for _, c := range corrections {
		logger.Warn("settings corrected",
			zap.String("field", c.Field),
			zap.String("from", c.From),
			zap.String("to", c.To),
			zap.String("rule", c.Rule),
		)
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
