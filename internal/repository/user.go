package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maisonverre/storefront-api/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, email, name, role FROM users WHERE id = $1`

	// Scoped to the user so one customer can never ship to another's
	// address by guessing IDs.
	getAddressSQL = `SELECT id, label, line1, line2, city, state, pincode, phone
		FROM addresses WHERE id = $1 AND user_id = $2`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID fetches a user account. Returns user.ErrNotFound when the id is
// unknown.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	err := r.pool.QueryRow(ctx, getUserByIDSQL, id).Scan(&u.ID, &u.Email, &u.Name, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	u.Role = user.Role(role)
	return &u, nil
}

// GetAddress fetches one of the user's saved addresses. Returns
// user.ErrAddressNotFound when the address does not exist or belongs to a
// different user.
func (r *UserRepository) GetAddress(ctx context.Context, userID, addressID string) (*user.Address, error) {
	var a user.Address
	err := r.pool.QueryRow(ctx, getAddressSQL, addressID, userID).Scan(
		&a.ID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.State, &a.Pincode, &a.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrAddressNotFound
		}
		return nil, fmt.Errorf("getting address %q for user %q: %w", addressID, userID, err)
	}
	return &a, nil
}
