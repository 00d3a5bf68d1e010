// Package logging provides structured logging configuration for mocktape.
//
// This package wraps log/slog to provide consistent logging across all
// mocktape components. It supports configurable log levels and output formats.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("scenario activated", "name", "server_error")
//	logger.Warn("response validation failed", "errors", 2)
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via a setter.
// If no logger is provided, use logging.Nop() for a no-op logger.
package logging
