package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"userapi/internal/config"
	"userapi/pkg/domain"
	"userapi/pkg/serrors"
	"userapi/pkg/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "userapi/internal/users"

	// AccountExistsMessage is returned when the account number is already taken.
	AccountExistsMessage = "This Account ID already exists."
	// AccountRequiredMessage is returned when the account number is blank.
	AccountRequiredMessage = "Account number is required."
)

// Options configure how the service enqueues follow-up jobs.
type Options struct {
	// JobMaxAttempts is how many times the user-created notification is tried.
	JobMaxAttempts int
	// MeterProvider receives the service counters. Nil disables them.
	MeterProvider metric.MeterProvider
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config, mp metric.MeterProvider) Options {
	return Options{
		JobMaxAttempts: cfg.Notifier.MaxAttempts,
		MeterProvider:  mp,
	}
}

type service struct {
	options Options
	storage storage.Storage
	tracer  trace.Tracer

	created  metric.Int64Counter
	rejected metric.Int64Counter
}

// New creates a Service backed by the provided storage.
func New(storage storage.Storage, options Options) (Service, error) {
	mp := options.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	created, err := meter.Int64Counter("users.created",
		metric.WithDescription("Number of users created."))
	if err != nil {
		return nil, fmt.Errorf("could not create users.created counter: %w", err)
	}
	rejected, err := meter.Int64Counter("users.rejected",
		metric.WithDescription("Number of user creations rejected as invalid."))
	if err != nil {
		return nil, fmt.Errorf("could not create users.rejected counter: %w", err)
	}

	return &service{
		options:  options,
		storage:  storage,
		tracer:   otel.Tracer(instrumentationName),
		created:  created,
		rejected: rejected,
	}, nil
}

func (s *service) User(ctx context.Context, ID domain.UserID) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.User", trace.WithAttributes(attribute.Int64("user.id", int64(ID))))
	defer span.End()

	user, err := s.storage.UserByID(ctx, ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("could not get user: %w", err)
	}
	if user == nil {
		return nil, serrors.With(serrors.ErrNotFound, "user %d not found", ID)
	}

	return user, nil
}

func (s *service) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.Create")
	defer span.End()

	user.Account.Number = strings.TrimSpace(user.Account.Number)
	if user.Account.Number == "" {
		s.reject(ctx, "missing_account_number")

		return nil, serrors.With(serrors.ErrInvalidArgument, AccountRequiredMessage)
	}

	var created *domain.User
	err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		exists, err := tx.AccountNumberExists(ctx, user.Account.Number)
		if err != nil {
			return fmt.Errorf("could not check account number: %w", err)
		}
		if exists {
			return serrors.With(serrors.ErrInvalidArgument, AccountExistsMessage)
		}

		stored, err := tx.StoreUser(ctx, user)
		if errors.Is(err, storage.ErrDuplicate) {
			// lost a race against a concurrent create of the same number
			return serrors.Wrap(serrors.ErrInvalidArgument, err, AccountExistsMessage)
		}
		if err != nil {
			return fmt.Errorf("could not store user: %w", err)
		}

		if _, err := tx.AddJob(ctx, CreatedJobArgs{
			UserID:        stored.ID,
			AccountNumber: stored.Account.Number,
			maxAttempts:   s.options.JobMaxAttempts,
		}, nil); err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}
		created = stored

		return nil
	})
	if errors.Is(err, serrors.ErrInvalidArgument) {
		s.reject(ctx, "duplicate_account_number")

		return nil, err
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("could not create user: %w", err)
	}

	span.SetAttributes(attribute.Int64("user.id", int64(created.ID)))
	s.created.Add(ctx, 1)

	return created, nil
}

func (s *service) reject(ctx context.Context, reason string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("users.rejected.reason", reason))
	s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
