package memory

import (
	"context"
	"time"

	"github.com/embedvm/session-broker/internal/lease"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

// LeaseRepository implements the lease.Repository interface using hashicorp/go-memdb
type LeaseRepository struct {
	db *memdb.MemDB
}

var _ lease.Repository = (*LeaseRepository)(nil)

// GetBySessionID retrieves a lease by its provider session ID
func (repo *LeaseRepository) GetBySessionID(_ context.Context, sessionID string) (*lease.Lease, error) {
	txn := repo.db.Txn(false)
	obj, err := txn.First("leases", "sessionID", sessionID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*lease.Lease), nil
}

// Create registers a new lease for a freshly provisioned session
func (repo *LeaseRepository) Create(_ context.Context, sessionID string, expires int64) (*lease.Lease, error) {
	obj := &lease.Lease{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Expires:   expires,
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("leases", obj); err != nil {
		return nil, err
	}
	txn.Commit()

	return obj, nil
}

// DeleteBySessionID removes a lease by its provider session ID
func (repo *LeaseRepository) DeleteBySessionID(_ context.Context, sessionID string) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("leases", "sessionID", sessionID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// DeleteExpired removes all leases whose expiry has passed
func (repo *LeaseRepository) DeleteExpired(_ context.Context) (int, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound("leases", "expires", 0)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	deleted := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		entry := obj.(*lease.Lease)
		if entry.Expires > now {
			break
		}
		if err := txn.Delete("leases", entry); err != nil {
			return 0, err
		}
		deleted++
	}

	txn.Commit()
	return deleted, nil
}
