package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"culinary-assistant/internal/app"
	"culinary-assistant/internal/config"
	"culinary-assistant/internal/localserver"
	"culinary-assistant/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := app.NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create handler")
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := localserver.NewRouter(h, cfg.Local.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create router")
	}

	srv := &http.Server{
		Addr:              cfg.Local.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()
	logger.WithFields(logrus.Fields{"addr": cfg.Local.Addr, "path": cfg.Local.Path}).Info("local server started")

	<-ctx.Done()
	logger.Info("shutting down local server")

	// Upstream calls can take up to the OpenAI timeout; let them finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.OpenAI.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
}
