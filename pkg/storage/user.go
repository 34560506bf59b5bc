package storage

import (
	"context"

	"userapi/pkg/domain"
)

// UserStorage is the gateway the user service reads and writes users through.
type UserStorage interface {
	// UserByID returns the user with the given ID together with its account.
	// It returns nil and no error when there is no such user.
	UserByID(ctx context.Context, ID domain.UserID) (*domain.User, error)
	// StoreUser persists user and its account and returns the stored form,
	// with IDs and CreatedAt populated. Any ID set on the input is ignored.
	// An account number that is already taken yields an error matching
	// ErrDuplicate.
	StoreUser(ctx context.Context, user domain.User) (*domain.User, error)
	// AccountNumberExists reports whether any stored account has number.
	AccountNumberExists(ctx context.Context, number string) (bool, error)
}
