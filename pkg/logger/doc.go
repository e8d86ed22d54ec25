// Package logger provides a structured logging interface for the profile watcher.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output
// - Optional file output alongside the console
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "igwatcher/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "igwatcher.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Watcher started")
//	logger.WithField("username", "john_doe").Info("Profile checked")
//	logger.WithError(err).Error("Failed to download picture")
//
// A TestLogger implementation is provided for asserting on log output in
// tests without touching stdout.
package logger
