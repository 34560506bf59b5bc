package users

import (
	"context"

	"userapi/pkg/domain"
)

//go:generate mockgen -package mockusers -source=interface.go -destination=mock/mockusers.go *
type Service interface {
	// User returns the user with the given ID. A missing user is reported
	// with serrors.ErrNotFound.
	User(ctx context.Context, ID domain.UserID) (*domain.User, error)
	// Create stores a new user. A blank or already taken account number is
	// reported with serrors.ErrInvalidArgument.
	Create(ctx context.Context, user domain.User) (*domain.User, error)
}
