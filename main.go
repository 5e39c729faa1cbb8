package main

import (
	"context"
	"os"
	"os/signal"

	_ "github.com/lib/pq"

	"sistemaAcademico/application"
	"sistemaAcademico/config"
	"sistemaAcademico/logger"
)

func main() {
	logr := logger.GetInstance()

	cfg, err := config.Load()
	if err != nil {
		logr.Fatalf("config load failed: %v", err)
	}

	if err := logr.Initialize(cfg.LogDir, cfg.LogLevel); err != nil {
		logr.Fatalf("logger initialization failed: %v", err)
	}

	logr.Infof("Application starting. LogLevel=%d", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app := application.NewApplication()
	if err := app.Configure(cfg, logr); err != nil {
		logr.Fatalf("application configuration failed: %v", err)
	}
	defer app.Close()

	app.Run(ctx)

	logr.Info("Application stopped")
}
