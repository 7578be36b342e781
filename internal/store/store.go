// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/mvidalr/gramreach/internal/domain"
)

// Delivery is one sent message, recorded for auditing. The working set
// itself is not persisted; this log only records what went out.
type Delivery struct {
	RunID         string
	RecipientID   string
	RecipientName string
	Message       string
	SentAt        time.Time
}

// Repository defines the interface for persisting campaign runs and the
// delivery audit log.
type Repository interface {
	// CreateCampaign records the start of a campaign run.
	CreateCampaign(ctx context.Context, c *domain.Campaign) error

	// RecordDelivery appends one sent message to the delivery log.
	RecordDelivery(ctx context.Context, d *Delivery) error

	// CountDeliveries returns how many messages a run has delivered.
	CountDeliveries(ctx context.Context, runID string) (int, error)

	// RecentDeliveries returns the most recent deliveries of a run,
	// newest first, up to limit.
	RecentDeliveries(ctx context.Context, runID string, limit int) ([]*Delivery, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
