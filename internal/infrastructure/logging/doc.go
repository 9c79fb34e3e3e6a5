// Package logging provides structured logging for the Itsyhome bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Usage
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("connected to hub", "url", url)
//
//	clientLog := log.With("component", "hass")
//	clientLog.Debug("message received", "type", msgType)
//
// Output is JSON by default for machine consumption; set format "text"
// for local development.
package logging
