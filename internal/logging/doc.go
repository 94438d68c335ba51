// Package logging provides structured logging for the device-management client.
//
// The package wraps a zap logger with package-level helpers so that the request
// service, the API wrappers and the CLI share one configured logger. Output is
// silent unless a level is set explicitly or through DEVMGR_LOG_LEVEL.
//
// # Log Levels
//
//   - Debug: request and response details (URL, method, body size)
//   - Info: completed operations
//   - Warn: network failures and retries
//   - Error: calls that gave up
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	logging.LogRequest("GET", url)
//
// All functions are safe for concurrent use.
package logging
