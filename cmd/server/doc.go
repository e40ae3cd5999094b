// Package main is the entry point for the scene session manager.
//
// The process owns the session directory, the screens and the fold engine.
// Clients reach it three ways:
//
//	HTTP (gin)        queries, lifecycle requests, sensor injection, dump
//	WebSocket (/ws)   remote listener agents
//	gRPC (IPC_ADDR)   descriptor-checked parcel transactions
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - FOLD_PRODUCT_CONFIG names a YAML or TOML threshold file
//   - CLI flags override the environment
//
// Usage:
//
//	./server -port 8000 -ipc localhost:50061 -fold-policy dual
//
//	# Development mode (colored logs)
//	./server -dev -log-level debug
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
