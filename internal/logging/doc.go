// Package logging provides structured logging for rtinspect.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the tool: configuration changes, credential
// refreshes and realtime channel traffic.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (raw frames, heartbeats)
//   - Info: Normal operations (connections, joins, config commits)
//   - Warn: Non-fatal issues (credential refresh failures, reconnects)
//   - Error: Failures the user should see
//
// # Silent by Default
//
// Logging is disabled unless RTINSPECT_LOG_LEVEL or --log-level is set. The
// interactive inspector owns the terminal, so it should be paired with
// --log-file to keep log lines out of the rendered screen:
//
//	if err := logging.Initialize("debug", "/tmp/rtinspect.log"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Secrets
//
// Tokens and JWTs must never reach the log in clear text. Use Mask for any
// credential value:
//
//	logging.Info("Token selected", zap.String("token", logging.Mask(token)))
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
