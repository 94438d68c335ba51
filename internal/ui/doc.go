// Package ui provides terminal output components for the devmgr CLI.
//
// Components follow a "run once and exit" pattern: they render polished
// output but never take over the terminal for interaction.
//
//   - Header: command banner showing the operation and its parameters
//   - Table: entity lists rendered with bubbles/table
//   - Result: success, failure and warning boxes
//   - RunWithSpinner: a Bubble Tea spinner shown while a request (and any
//     retries) is in flight
//   - Confirm: typed confirmation before destructive operations
//
// # Logging Integration
//
// zap logging is silent unless DEVMGR_LOG_LEVEL is set, so the curated UI
// output is displayed cleanly. Logs go to stderr; set the level to "debug"
// to see every request and response.
package ui
