package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"storyboard/internal/httputil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "storyboard_http_panics_total",
	Help: "Handler panics caught by the recovery middleware",
})

// Recovery turns a handler panic into a 500 problem response. When the
// handler had already started its response (an SSE chat stream, an export
// download) nothing more is written; the panic is only logged and counted.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				httpPanicsTotal.Inc()
				logger.Error("panic recovered",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", httputil.GetUserID(r),
					"response_started", rec.status != 0,
					"stack", string(debug.Stack()),
				)
				if rec.status == 0 {
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
