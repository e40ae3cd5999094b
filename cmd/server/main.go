package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "HTTP server host")
	flag.StringVar(&cfg.IPC.Address, "ipc", cfg.IPC.Address, "IPC gRPC listen address")
	flag.BoolVar(&cfg.IPC.Enabled, "ipc-enabled", cfg.IPC.Enabled, "Serve IPC transactions over gRPC")
	flag.StringVar(&cfg.Fold.Policy, "fold-policy", cfg.Fold.Policy, "Fold policy: single or dual")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		srv.Close()
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
