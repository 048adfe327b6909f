package memory

import (
	"context"

	"github.com/embedvm/session-broker/internal/lease"
	"github.com/embedvm/session-broker/internal/storage"
	"github.com/hashicorp/go-memdb"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"leases": {
			Name: "leases",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"sessionID": {
					Name:         "sessionID",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "SessionID"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory storage driver built using hashicorp/go-memdb.
// Registry entries do not survive a process restart and are not shared across server instances;
// the cookie-encoded credential keeps the broker itself correct in both situations.
type Driver struct {
	db     *memdb.MemDB
	leases *LeaseRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty in-memory storage driver.
// Use Initialize to set up the database and the repository implementations.
func New() *Driver {
	return &Driver{}
}

// Initialize sets up the in-memory database and initializes the repository implementations
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return err
	}
	driver.db = db
	driver.leases = &LeaseRepository{db: db}
	return nil
}

// Leases provides the in-memory lease repository implementation
func (driver *Driver) Leases() lease.Repository {
	return driver.leases
}

// Close discards the repository implementations and the in-memory database
func (driver *Driver) Close() {
	driver.leases = nil
	driver.db = nil
}
