// Package server initializes and runs the application: it opens the document
// store, wires the model layer and the chosen upload backend, and serves the
// HTTP API until a termination signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/logging"
	"github.com/dmitrijs2005/instafeed/internal/server/auth"
	"github.com/dmitrijs2005/instafeed/internal/server/config"
	"github.com/dmitrijs2005/instafeed/internal/server/httpapi"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
	"github.com/dmitrijs2005/instafeed/internal/server/uploads"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *docstore.Store
	api    *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewDefaultZerologLogger()

	store, err := docstore.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	uploadStore, err := newUploadStore(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	m, err := models.New(ctx, models.Deps{
		Store:        store,
		HashPassword: auth.PasswordHasher(cfg.AppSecret),
		FileURL:      uploadStore.URL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("models init error: %w", err)
	}

	api := httpapi.New(cfg, logger, m, uploadStore)

	return &App{config: cfg, logger: logger, store: store, api: api}, nil
}

func newUploadStore(ctx context.Context, cfg *config.Config) (uploads.Store, error) {
	switch cfg.UploadBackend {
	case "disk":
		return uploads.NewDiskStore(cfg.UploadDir, cfg.StaticURLPrefix)
	case "s3":
		return uploads.NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown upload backend: %s", cfg.UploadBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr, "uploads", app.config.UploadBackend)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, err.Error())
		}
	}

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
