package pg

import "context"

// logger is the slice of slog the migration runner needs; declared here
// so callers can pass any structured logger.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
