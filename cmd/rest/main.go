package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prompt-optimiser-be/internal/bootstrap"
	"prompt-optimiser-be/internal/config"
	"prompt-optimiser-be/internal/server"
	"prompt-optimiser-be/internal/tracer"

	_ "go.uber.org/automaxprocs"
)

func main() {
	// 0. Tracing (opt-in via OTEL_ENABLED)
	shutdownTracer := tracer.InitTracer()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start Background Services
	go container.Hub.Run(ctx)
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start session consumer: %v", err)
	}
	if err := container.AuditService.Start(ctx); err != nil {
		log.Printf("[WARN] Audit consumer not started: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	if err := srv.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	container.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}
