package user

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrAddressNotFound is returned when an address id does not belong to
	// the given user's address book.
	ErrAddressNotFound = errors.New("address not found")
)

// Role enumerates user roles. Role assignment happens in the external auth
// service; this package only reads it.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the slice of the account record the storefront needs: identity
// for order ownership and contact details for notifications.
type User struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// Address is one entry in a user's address book. The JSON tags are the
// storage format for address snapshots embedded in orders.
type Address struct {
	ID      string `json:"id,omitempty"`
	Label   string `json:"label"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

// Repository provides read access to users and their address books.
// Writes are owned by the external auth/account service.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetAddress returns the address only when it belongs to userID,
	// otherwise ErrAddressNotFound.
	GetAddress(ctx context.Context, userID, addressID string) (*Address, error)
}
