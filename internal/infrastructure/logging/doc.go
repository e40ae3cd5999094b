// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: coloured console output for humans
//
// Components receive a child logger from Component so every line carries the
// subsystem name (fold, directory, ipc, ...). Constructors that accept a nil
// *zap.Logger fall back to a no-op logger.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	dir := directory.NewManager(directory.WithLogger(logger.Component("directory")))
//	logger.Info("server starting", zap.String("port", "8000"))
package logging
