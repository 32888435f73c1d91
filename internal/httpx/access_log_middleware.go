package httpx

import (
	"log"
	"net/http"
	"time"
)

// responseWriter records what the handler chain sent so the access log and
// the panic handler can see it.
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int64
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.headerWritten {
		return
	}
	rw.statusCode = code
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// AccessLogMiddleware writes one line per request. The route is the
// ServeMux pattern that matched ("-" when none did) and subject is the
// token subject recorded by AuthMiddleware ("-" for anonymous calls).
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		ctx, details := contextWithRequestLog(r.Context())
		r = r.WithContext(ctx)

		next.ServeHTTP(rw, r)

		log.Printf("access method=%s route=%q path=%s status=%d bytes=%d duration_ms=%d request_id=%s subject=%s",
			r.Method,
			routeOf(r),
			r.URL.Path,
			rw.statusCode,
			rw.bytesWritten,
			time.Since(start).Milliseconds(),
			orDash(RequestIDFrom(r)),
			orDash(details.subject),
		)
	})
}

// routeOf relies on ServeMux setting Pattern on the request it was handed.
func routeOf(r *http.Request) string {
	return orDash(r.Pattern)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
