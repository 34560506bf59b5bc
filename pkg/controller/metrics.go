package controller

import (
	"net/http"
	"strconv"
	"time"

	"userapi/pkg/metrics"
)

const (
	// unmatchedRoute labels requests that did not match any registered pattern.
	unmatchedRoute = "unmatched"
	// otherMethod labels requests with a non-standard method.
	otherMethod = "other"
)

// knownMethods bounds the method label to the standard verbs.
var knownMethods = map[string]struct{}{ //nolint: gochecknoglobals
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodConnect: {},
	http.MethodOptions: {},
	http.MethodTrace:   {},
}

func methodLabel(method string) string {
	if _, ok := knownMethods[method]; ok {
		return method
	}

	return otherMethod
}

// WithMetrics records the latency of every request in m. The route label is
// read from Request.Pattern, which the ServeMux sets on the request it
// receives, so every middleware between the two must pass r through unchanged.
func WithMetrics(m *metrics.HTTP, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		m.RequestDuration.
			WithLabelValues(methodLabel(r.Method), route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
