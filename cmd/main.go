package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"image-verify/internal"
	"image-verify/internal/logging"
	"image-verify/internal/service"
)

func main() {
	// Load .env file if it exists (try multiple paths)
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, path := range envPaths {
		_ = godotenv.Load(path)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.ErrorsLogPath)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("shutdown signal received")
		cancel()
	}()

	svc, err := service.Build(ctx, cfg, log)
	if err != nil {
		log.Errorf("build service: %v", err)
		return
	}

	log.Infof("threshold %.1f%%, max upload %d bytes, grid %dx%d",
		cfg.SimilarityThreshold, cfg.MaxFileSize, cfg.ResizeWidth, cfg.ResizeHeight)
	if err := svc.Run(ctx); err != nil {
		log.Errorf("service stopped: %v", err)
	}
}
