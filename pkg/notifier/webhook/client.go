// Package webhook provides a notifier.Client that POSTs events as JSON to a
// configured URL.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"userapi/pkg/notifier"
	"userapi/pkg/serrors"

	"github.com/go-faster/jx"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the body>" when a secret is set.
	SignatureHeader = "X-Userapi-Signature"
	// EventIDHeader repeats the event ID so receivers can deduplicate without parsing.
	EventIDHeader = "X-Userapi-Event-Id"

	userAgent = "userapi-webhook/1.0"
	// defaultRetryAfter is used when a 429 carries no usable Retry-After.
	defaultRetryAfter = time.Minute
	// maxErrorBody caps how much of an error response ends up in the error.
	maxErrorBody = 1 << 10
)

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	url        string
	secret     []byte
	now        func() time.Time
}

var _ notifier.Client = (*Client)(nil)

// New constructs a Client posting to url. An empty secret disables signing.
func New(httpClient *http.Client, url, secret string) *Client {
	return &Client{
		httpClient: httpClient,
		url:        url,
		secret:     []byte(secret),
		now:        time.Now,
	}
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// EncodeUserCreated renders the JSON body sent for event.
func EncodeUserCreated(event notifier.UserCreatedEvent) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(event.ID)
	e.FieldStart("type")
	e.Str("user.created")
	e.FieldStart("occurredAt")
	e.Str(event.OccurredAt.Format(time.RFC3339Nano))
	e.FieldStart("data")
	e.ObjStart()
	e.FieldStart("userId")
	e.Int64(int64(event.UserID))
	e.FieldStart("accountNumber")
	e.Str(event.AccountNumber)
	e.ObjEnd()
	e.ObjEnd()

	return e.Bytes()
}

// ParseRetryAfter reads a Retry-After header, either delay-seconds or an
// HTTP date, relative to now.
func ParseRetryAfter(h http.Header, now time.Time) time.Time {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return now.Add(defaultRetryAfter)
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	if at, err := http.ParseTime(v); err == nil {
		return at
	}

	return now.Add(defaultRetryAfter)
}

// UserCreated posts event to the webhook URL. 2xx is success, 429 is
// reported as serrors.ErrRateLimited, any other 4xx as serrors.ErrConflict.
func (c *Client) UserCreated(ctx context.Context, event notifier.UserCreatedEvent) (notifier.RateLimitStatus, error) {
	body := EncodeUserCreated(event)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return notifier.RateLimitStatus{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(EventIDHeader, event.ID)
	if len(c.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(c.secret, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return notifier.RateLimitStatus{}, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return notifier.RateLimitStatus{}, fmt.Errorf("could not read response body: %w", err)
	}
	msg := strings.TrimSpace(string(b))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return notifier.RateLimitStatus{}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		rl := notifier.RateLimitStatus{ResetAt: ParseRetryAfter(resp.Header, c.now())}

		return rl, serrors.With(serrors.ErrRateLimited, "rate limited: %s", msg)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return notifier.RateLimitStatus{}, serrors.With(serrors.ErrConflict, "webhook rejected event with %d: %s", resp.StatusCode, msg)
	default:
		return notifier.RateLimitStatus{}, fmt.Errorf("webhook failed with %d: %s", resp.StatusCode, msg)
	}
}
