package users_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"userapi/internal/users"
	"userapi/pkg/domain"
	"userapi/pkg/serrors"
	"userapi/pkg/storage"
	mockstorage "userapi/pkg/storage/mock"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"
)

func newTestService(t *testing.T) (*gomock.Controller, *mockstorage.MockStorage, users.Service, *sdkmetric.ManualReader) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	reader := sdkmetric.NewManualReader()
	s, err := users.New(st, users.Options{
		JobMaxAttempts: 3,
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	})
	require.NoError(t, err)

	return ctrl, st, s, reader
}

// expectWithTx wires Storage.WithTx to run the callback against a MockAllStorage.
func expectWithTx(
	t *testing.T,
	ctrl *gomock.Controller,
	m *mockstorage.MockStorage,
	fn func(tx *mockstorage.MockAllStorage)) {
	t.Helper()

	m.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb func(storage.AllStorage) error) error {
			tx := mockstorage.NewMockAllStorage(ctrl)
			if fn != nil {
				fn(tx)
			}

			return cb(tx)
		},
	)
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s should be an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}

	return total
}

func TestService_User(t *testing.T) {
	_, st, s, _ := newTestService(t)
	ctx := context.Background()
	want := &domain.User{ID: 7, Account: domain.Account{ID: 3, Number: "123"}}

	st.EXPECT().UserByID(gomock.Any(), domain.UserID(7)).Return(want, nil)
	got, err := s.User(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, want, got)

	st.EXPECT().UserByID(gomock.Any(), domain.UserID(99999)).Return(nil, nil)
	_, err = s.User(ctx, 99999)
	require.ErrorIs(t, err, serrors.ErrNotFound)

	boom := errors.New("connection reset")
	st.EXPECT().UserByID(gomock.Any(), domain.UserID(1)).Return(nil, boom)
	_, err = s.User(ctx, 1)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, serrors.ErrNotFound)
}

func TestService_Create(t *testing.T) {
	ctrl, st, s, reader := newTestService(t)
	createdAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
		gomock.InOrder(
			tx.EXPECT().AccountNumberExists(gomock.Any(), "123").Return(false, nil),
			tx.EXPECT().StoreUser(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, u domain.User) (*domain.User, error) {
					require.Equal(t, "123", u.Account.Number, "account number should be trimmed")
					u.ID, u.Account.ID, u.CreatedAt = 10, 20, createdAt

					return &u, nil
				}),
			tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).DoAndReturn(
				func(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
					job, ok := args.(users.CreatedJobArgs)
					require.True(t, ok)
					require.Equal(t, domain.UserID(10), job.UserID)
					require.Equal(t, "123", job.AccountNumber)
					require.Equal(t, 3, job.InsertOpts().MaxAttempts)

					return true, nil
				}),
		)
	})

	u, err := s.Create(context.Background(), domain.User{
		Name:    "Ada",
		Account: domain.Account{Number: "  123 ", Agency: "0001"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.UserID(10), u.ID)
	require.Equal(t, domain.AccountID(20), u.Account.ID)
	require.Equal(t, "Ada", u.Name)
	require.Equal(t, createdAt, u.CreatedAt)
	require.EqualValues(t, 1, counterValue(t, reader, "users.created"))
}

func TestService_Create_Rejections(t *testing.T) {
	t.Run("existing account number", func(t *testing.T) {
		ctrl, st, s, reader := newTestService(t)
		expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
			tx.EXPECT().AccountNumberExists(gomock.Any(), "123").Return(true, nil)
		})

		_, err := s.Create(context.Background(), domain.User{Account: domain.Account{Number: "123"}})
		require.ErrorIs(t, err, serrors.ErrInvalidArgument)
		require.Equal(t, users.AccountExistsMessage, serrors.MessageOf(err))
		require.EqualValues(t, 1, counterValue(t, reader, "users.rejected"))
		require.EqualValues(t, 0, counterValue(t, reader, "users.created"))
	})

	t.Run("unique violation on store", func(t *testing.T) {
		ctrl, st, s, _ := newTestService(t)
		expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
			tx.EXPECT().AccountNumberExists(gomock.Any(), "123").Return(false, nil)
			tx.EXPECT().StoreUser(gomock.Any(), gomock.Any()).
				Return(nil, fmt.Errorf("could not store account into pg: %w", storage.ErrDuplicate))
		})

		_, err := s.Create(context.Background(), domain.User{Account: domain.Account{Number: "123"}})
		require.ErrorIs(t, err, serrors.ErrInvalidArgument)
		require.Equal(t, users.AccountExistsMessage, serrors.MessageOf(err))
	})

	t.Run("blank account number", func(t *testing.T) {
		_, _, s, reader := newTestService(t)

		_, err := s.Create(context.Background(), domain.User{Account: domain.Account{Number: "   "}})
		require.ErrorIs(t, err, serrors.ErrInvalidArgument)
		require.Equal(t, users.AccountRequiredMessage, serrors.MessageOf(err))
		require.EqualValues(t, 1, counterValue(t, reader, "users.rejected"))
	})
}

func TestService_Create_PropagatesErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tx *mockstorage.MockAllStorage, boom error)
	}{
		{
			name: "exists check",
			setup: func(tx *mockstorage.MockAllStorage, boom error) {
				tx.EXPECT().AccountNumberExists(gomock.Any(), gomock.Any()).Return(false, boom)
			},
		},
		{
			name: "store",
			setup: func(tx *mockstorage.MockAllStorage, boom error) {
				tx.EXPECT().AccountNumberExists(gomock.Any(), gomock.Any()).Return(false, nil)
				tx.EXPECT().StoreUser(gomock.Any(), gomock.Any()).Return(nil, boom)
			},
		},
		{
			name: "add job",
			setup: func(tx *mockstorage.MockAllStorage, boom error) {
				tx.EXPECT().AccountNumberExists(gomock.Any(), gomock.Any()).Return(false, nil)
				tx.EXPECT().StoreUser(gomock.Any(), gomock.Any()).Return(&domain.User{ID: 1}, nil)
				tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).Return(false, boom)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, st, s, _ := newTestService(t)
			boom := errors.New(tt.name + " failed")
			expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) { tt.setup(tx, boom) })

			_, err := s.Create(context.Background(), domain.User{Account: domain.Account{Number: "1"}})
			require.ErrorIs(t, err, boom)
			require.NotErrorIs(t, err, serrors.ErrInvalidArgument)
		})
	}
}

func TestService_NilMeterProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := users.New(mockstorage.NewMockStorage(ctrl), users.Options{})
	require.NoError(t, err)
}
