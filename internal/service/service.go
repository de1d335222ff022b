// Package service provides business logic for the application.
package service

import (
	"context"
	"log/slog"
)

// BestEffort runs fn and reports whether it succeeded. A failure is logged
// under op and then discarded; it never reaches the caller's response.
func BestEffort(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) bool {
	if err := fn(ctx); err != nil {
		logger.WarnContext(ctx, "best-effort operation failed", "op", op, "error", err)
		return false
	}
	return true
}
