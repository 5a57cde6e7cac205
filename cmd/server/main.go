package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"doctriage/internal/classify"
	"doctriage/internal/config"
	"doctriage/internal/consolidator"
	"doctriage/internal/engine"
	"doctriage/internal/handler"
	"doctriage/internal/metrics"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/routing"
	"doctriage/internal/service"
	s3storage "doctriage/internal/storage/s3"
	"doctriage/internal/warm"

	// Provider registrations.
	_ "doctriage/internal/provider/claude"
	_ "doctriage/internal/provider/gemini"
	_ "doctriage/internal/provider/ocr"
	_ "doctriage/internal/provider/openai"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := provider.NewPool(&cfg.Providers)
	if err != nil {
		return fmt.Errorf("failed to build provider pool: %w", err)
	}
	log.Printf("providers configured: %v", pool.IDs())

	warmer := warm.New(pool, warm.Config{
		HeartbeatInterval: cfg.Warming.HeartbeatInterval(),
		FailureThreshold:  cfg.Warming.FailureThreshold,
	})
	if cfg.Warming.Enabled {
		warmer.Start(ctx)
		defer warmer.Wait()
	}

	reporter := metrics.NewReporter(metrics.LogDeliverer, cfg.Metrics.BufferSize)
	reporter.Start(ctx)
	defer reporter.Wait()

	var cons port.Consolidator
	if cfg.Consolidator.Endpoint != "" {
		cons = consolidator.NewClient(cfg.Consolidator.Endpoint, time.Duration(cfg.Consolidator.TimeoutSecs)*time.Second)
	}

	eng := engine.New(pool, warmer, reporter, cons, engine.Config{
		RaceDeadline:   cfg.Engine.RaceDeadline(),
		AttemptTimeout: cfg.Engine.AttemptTimeout(),
	})

	var storage port.ObjectStorage
	if cfg.S3.Enabled {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	classifier := classify.New(pool, warmer, cfg.Classify.EscalationThreshold)
	router := routing.New(pool, warmer)
	svc := service.NewExtractionService(classifier, router, eng, storage, cfg.Engine.MaxFileSizeMB)

	extractH := handler.NewExtractHandler(svc, warmer)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", extractH.Health)
	v1 := r.Group("/v1")
	v1.POST("/extract", extractH.Extract)
	v1.GET("/providers", extractH.Providers)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("server starting on %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
