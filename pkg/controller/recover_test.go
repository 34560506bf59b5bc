package controller_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"userapi/pkg/controller"
	"userapi/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const opaqueBody = "Unexpected server error, see the logs."

func serveWithObservedLogger(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.ErrorLevel)
	req = req.WithContext(logger.WithLogger(context.Background(), zap.New(core)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec, logs
}

func TestWithRecover(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   string
		wantLogs   int
	}{
		{
			name:       "no panic passes through",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantStatus: http.StatusNoContent,
		},
		{
			name: "panic becomes opaque 500",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				panic("nil map write")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   opaqueBody,
			wantLogs:   1,
		},
		{
			name: "started response is left alone",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic("after header")
			},
			wantStatus: http.StatusAccepted,
			wantLogs:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := controller.WithRecover(opaqueBody, tt.handler)

			var (
				rec  *httptest.ResponseRecorder
				logs *observer.ObservedLogs
			)
			require.NotPanics(t, func() {
				rec, logs = serveWithObservedLogger(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))
			})

			require.Equal(t, tt.wantStatus, rec.Code)
			require.Equal(t, tt.wantBody, rec.Body.String())
			require.Equal(t, tt.wantLogs, logs.Len())
			if tt.wantBody != "" {
				require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			}
			if tt.wantLogs > 0 {
				fields := logs.All()[0].ContextMap()
				require.NotEmpty(t, fields["panic"])
				require.NotEmpty(t, fields["stack"])
			}
		})
	}
}

func TestWithRecover_AbortHandlerIsReraised(t *testing.T) {
	h := controller.WithRecover(opaqueBody, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
