package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/whisperx-api/internal/api"
	"github.com/eugenenazirov/whisperx-api/internal/config"
	"github.com/eugenenazirov/whisperx-api/internal/media"
	"github.com/eugenenazirov/whisperx-api/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	settings *config.Settings
	storage  storage.Storage
	media    *media.ExtensionClassifier
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New wires storage, media classification and the HTTP stack from resolved settings.
func New(ctx context.Context, settings *config.Settings, logger *zap.Logger) (*App, error) {
	if settings == nil {
		return nil, errors.New("settings are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.Open(ctx, settings.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	classifier := media.New(settings.Whisper, logger)
	handler := api.NewHandler(settings, classifier, store)
	router := api.NewRouter(handler, logger,
		api.WithLogging(settings.Server.RequestLogging),
		api.WithRateLimit(settings.Server.RateLimitRPS, settings.Server.RateLimitBurst),
		api.WithCORS(settings.CORS),
	)

	return &App{
		settings: settings,
		storage:  store,
		media:    classifier,
		handler:  handler,
		router:   router,
		logger:   logger,
		server:   NewServer(settings.Server, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the server settings.
func NewServer(cfg config.ServerSettings, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.String("environment", a.settings.Environment),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases the storage backend. Call it after the server has shut down.
func (a *App) Close() error {
	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
