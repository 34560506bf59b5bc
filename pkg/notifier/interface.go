// Package notifier defines how the outside world is told about user events.
package notifier

import (
	"context"
	"fmt"
	"time"

	"userapi/pkg/domain"

	"github.com/google/uuid"
)

// UserCreatedEvent is published once a user has been stored.
type UserCreatedEvent struct {
	// ID is stable for a given user so receivers can drop redeliveries.
	ID            string
	UserID        domain.UserID
	AccountNumber string
	OccurredAt    time.Time
}

// NewUserCreatedEvent builds the event for a user, deriving its ID from the user ID.
func NewUserCreatedEvent(userID domain.UserID, accountNumber string, occurredAt time.Time) UserCreatedEvent {
	return UserCreatedEvent{
		ID:            uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "userapi:user-created:%d", userID)).String(),
		UserID:        userID,
		AccountNumber: accountNumber,
		OccurredAt:    occurredAt.UTC(),
	}
}

// RateLimitStatus is what the receiver told us about throttling.
type RateLimitStatus struct {
	// ResetAt is when it is fine to try again. Zero when the receiver did not throttle.
	ResetAt time.Time
}

// Client delivers events. Errors matching serrors.ErrRateLimited come with a
// RateLimitStatus, errors matching serrors.ErrConflict are permanent and
// anything else may be retried.
//
//go:generate mockgen -package mocknotifier -source=interface.go -destination=mock/mocknotifier.go *
type Client interface {
	UserCreated(ctx context.Context, event UserCreatedEvent) (RateLimitStatus, error)
}

// Noop drops every event. It is used when no webhook is configured.
type Noop struct{}

func (Noop) UserCreated(context.Context, UserCreatedEvent) (RateLimitStatus, error) {
	return RateLimitStatus{}, nil
}

var _ Client = Noop{}
