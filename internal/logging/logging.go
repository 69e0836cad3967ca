// Package logging provides the zerolog-based, node/workflow-scoped
// logger required by spec.md §5 ("Scoped logger context"): the driver
// builds a child logger carrying node_id/node_type before invoking an
// executor and discards it on every exit path. Grounded on the
// teacher's zerolog usage in its logger node
// (backend/internal/nodes/core/logger_node.go).
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the base logger: JSON to stdout, timestamped, matching the
// teacher's default `zerolog.New(os.Stdout).With().Timestamp().Logger()`.
func New(level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return logger.Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ForNode returns a child logger scoped to one node's execution,
// carrying workflow/node identity fields. The driver creates one of
// these immediately before invoking an executor and lets it fall out
// of scope immediately after, regardless of whether the executor
// returned an error.
func ForNode(base zerolog.Logger, workflowName, nodeID, nodeType string) zerolog.Logger {
	return base.With().
		Str("workflow", workflowName).
		Str("node_id", nodeID).
		Str("node_type", nodeType).
		Logger()
}
