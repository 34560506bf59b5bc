package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"userapi/pkg/notifier"
	"userapi/pkg/notifier/webhook"
	"userapi/pkg/serrors"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/require"
)

var event = notifier.NewUserCreatedEvent(42, "123", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)) //nolint: gochecknoglobals

func TestNewUserCreatedEvent_StableID(t *testing.T) {
	again := notifier.NewUserCreatedEvent(42, "123", time.Now())
	require.Equal(t, event.ID, again.ID)

	other := notifier.NewUserCreatedEvent(43, "123", time.Now())
	require.NotEqual(t, event.ID, other.ID)
}

func TestEncodeUserCreated(t *testing.T) {
	d := jx.DecodeBytes(webhook.EncodeUserCreated(event))

	fields := map[string]string{}
	require.NoError(t, d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "data":
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				raw, err := d.Raw()
				fields["data."+string(key)] = raw.String()

				return err
			})
		default:
			s, err := d.Str()
			fields[string(key)] = s

			return err
		}
	}))

	require.Equal(t, map[string]string{
		"id":                 event.ID,
		"type":               "user.created",
		"occurredAt":         "2025-01-02T03:04:05Z",
		"data.userId":        "42",
		"data.accountNumber": `"123"`,
	}, fields)
}

func TestClient_UserCreated_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, event.ID, r.Header.Get(webhook.EventIDHeader))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, webhook.Sign([]byte("s3cret"), body), r.Header.Get(webhook.SignatureHeader))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rl, err := webhook.New(srv.Client(), srv.URL, "s3cret").UserCreated(context.Background(), event)
	require.NoError(t, err)
	require.True(t, rl.ResetAt.IsZero())
}

func TestClient_UserCreated_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get(webhook.SignatureHeader))
	}))
	defer srv.Close()

	_, err := webhook.New(srv.Client(), srv.URL, "").UserCreated(context.Background(), event)
	require.NoError(t, err)
}

func TestClient_UserCreated_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		kind       serrors.Kind
		resetAfter time.Duration
	}{
		{name: "rate limited with seconds", status: http.StatusTooManyRequests, retryAfter: "30", kind: serrors.ErrRateLimited, resetAfter: 30 * time.Second},
		{name: "rate limited without header", status: http.StatusTooManyRequests, kind: serrors.ErrRateLimited, resetAfter: time.Minute},
		{name: "rejected", status: http.StatusGone, kind: serrors.ErrConflict},
		{name: "server error", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope\n"))
			}))
			defer srv.Close()

			before := time.Now()
			rl, err := webhook.New(srv.Client(), srv.URL, "").UserCreated(context.Background(), event)
			require.Error(t, err)
			require.Contains(t, err.Error(), "nope")

			if tt.kind != nil {
				require.ErrorIs(t, err, tt.kind)
			} else {
				require.NotErrorIs(t, err, serrors.ErrConflict)
				require.NotErrorIs(t, err, serrors.ErrRateLimited)
			}

			if tt.resetAfter > 0 {
				require.WithinDuration(t, before.Add(tt.resetAfter), rl.ResetAt, 5*time.Second)
			} else {
				require.True(t, rl.ResetAt.IsZero())
			}
		})
	}
}

func TestClient_UserCreated_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := webhook.New(http.DefaultClient, url, "").UserCreated(context.Background(), event)
	require.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	h := http.Header{}
	h.Set("Retry-After", now.Add(2*time.Hour).Format(http.TimeFormat))
	require.True(t, webhook.ParseRetryAfter(h, now).Equal(now.Add(2*time.Hour)))

	h.Set("Retry-After", "soon")
	require.True(t, webhook.ParseRetryAfter(h, now).Equal(now.Add(time.Minute)))

	h.Set("Retry-After", "5")
	require.True(t, webhook.ParseRetryAfter(h, now).Equal(now.Add(5*time.Second)))
}

func TestNoop(t *testing.T) {
	rl, err := notifier.Noop{}.UserCreated(context.Background(), event)
	require.NoError(t, err)
	require.True(t, rl.ResetAt.IsZero())
}
