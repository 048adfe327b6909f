package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/embedvm/session-broker/internal/lease"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// LeaseRepository implements the lease.Repository interface using PostgreSQL
type LeaseRepository struct {
	db *pgxpool.Pool
}

var _ lease.Repository = (*LeaseRepository)(nil)

// GetBySessionID retrieves a lease by its provider session ID
func (repo *LeaseRepository) GetBySessionID(ctx context.Context, sessionID string) (*lease.Lease, error) {
	sql, vals, err := psql.Select("lease_id", "session_id", "expires").
		From("leases").
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	obj := &lease.Lease{}
	if err := repo.db.QueryRow(ctx, sql, vals...).Scan(&obj.ID, &obj.SessionID, &obj.Expires); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create registers a new lease for a freshly provisioned session
func (repo *LeaseRepository) Create(ctx context.Context, sessionID string, expires int64) (*lease.Lease, error) {
	obj := &lease.Lease{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Expires:   expires,
	}

	sql, vals, err := psql.Insert("leases").
		Columns("lease_id", "session_id", "expires").
		Values(obj.ID, obj.SessionID, obj.Expires).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := repo.db.Exec(ctx, sql, vals...); err != nil {
		return nil, err
	}

	return obj, nil
}

// DeleteBySessionID removes a lease by its provider session ID
func (repo *LeaseRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	sql, vals, err := psql.Delete("leases").
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = repo.db.Exec(ctx, sql, vals...)
	return err
}

// DeleteExpired removes all leases whose expiry has passed
func (repo *LeaseRepository) DeleteExpired(ctx context.Context) (int, error) {
	sql, vals, err := psql.Delete("leases").
		Where(squirrel.LtOrEq{"expires": time.Now().Unix()}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := repo.db.Exec(ctx, sql, vals...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
