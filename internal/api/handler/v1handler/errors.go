package v1handler

import (
	"context"
	"errors"
	"net/http"

	"userapi/pkg/logger"
	"userapi/pkg/serrors"

	"go.uber.org/zap"
)

// UnexpectedErrorBody is the only detail a client gets about a failure the
// server did not anticipate.
const UnexpectedErrorBody = "Unexpected server error, see the logs."

const (
	notFoundBody     = "Resource ID not found."
	unauthorizedBody = "Unauthorized."
)

// ErrorResponse is what an error turns into on the wire. Body is sent as
// text/plain.
type ErrorResponse struct {
	StatusCode int
	Body       string
}

// errorRule maps a kind to a response. An empty body means the error's own
// message is sent.
type errorRule struct {
	kind   serrors.Kind
	status int
	body   string
}

// errorRules is walked in order and the first matching kind wins, so more
// specific kinds come first.
var errorRules = []errorRule{ //nolint: gochecknoglobals
	{kind: serrors.ErrInvalidArgument, status: http.StatusUnprocessableEntity},
	{kind: serrors.ErrNotFound, status: http.StatusNotFound, body: notFoundBody},
	{kind: serrors.ErrBadRequest, status: http.StatusBadRequest},
	{kind: serrors.ErrUnauthorized, status: http.StatusUnauthorized, body: unauthorizedBody},
}

// NewError translates err into the response sent to the client. Errors of
// an unknown kind are logged and hidden behind an opaque 500.
func (h *Handler) NewError(ctx context.Context, err error) *ErrorResponse {
	for _, rule := range errorRules {
		if !errors.Is(err, rule.kind) {
			continue
		}

		body := rule.body
		if body == "" {
			body = serrors.MessageOf(err)
		}
		logger.Debug(ctx, "request failed", zap.Int("status", rule.status), zap.Error(err))

		return &ErrorResponse{StatusCode: rule.status, Body: body}
	}

	logger.Error(ctx, "unexpected error", zap.Error(err))

	return &ErrorResponse{StatusCode: http.StatusInternalServerError, Body: UnexpectedErrorBody}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := h.NewError(r.Context(), err)

	if res.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="userapi"`)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write([]byte(res.Body))
}
