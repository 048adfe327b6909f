package storage

import (
	"context"

	"github.com/embedvm/session-broker/internal/lease"
)

// Driver represents a storage driver for the lease registry
type Driver interface {
	// Initialize initializes the storage driver (i.e. opens a database connection)
	Initialize(ctx context.Context) error

	// Leases provides a lease repository implementation
	Leases() lease.Repository

	// Close closes the storage driver (i.e. closes a database connection)
	Close()
}
