package controller

import (
	"errors"
	"net/http"

	"userapi/pkg/logger"

	"go.uber.org/zap"
)

// WithRecover turns a panic in next into a 500 carrying body and logs it with
// its stack. When the response was already started only the log entry is
// written. http.ErrAbortHandler is re-raised so net/http can abort the response.
func WithRecover(body string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			logger.Error(r.Context(), "panic while serving request",
				zap.Any("panic", p),
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Stack("stack"),
			)
			if rec.wroteHeader {
				return
			}

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(body))
		}()

		next.ServeHTTP(rec, r)
	})
}
