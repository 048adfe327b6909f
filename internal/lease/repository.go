package lease

import "context"

// Repository defines the lease registry API
type Repository interface {
	// GetBySessionID retrieves a lease by its provider session ID
	GetBySessionID(ctx context.Context, sessionID string) (*Lease, error)

	// Create registers a new lease for a freshly provisioned session
	Create(ctx context.Context, sessionID string, expires int64) (*Lease, error)

	// DeleteBySessionID removes a lease by its provider session ID
	DeleteBySessionID(ctx context.Context, sessionID string) error

	// DeleteExpired removes all leases whose expiry has passed
	DeleteExpired(ctx context.Context) (int, error)
}
