package repository

import (
	"context"
	"time"

	"nutriflow/auth/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// DeleteOlderThan removes audit logs created before cutoff and returns the
	// number of rows removed. Used by the retention worker.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
