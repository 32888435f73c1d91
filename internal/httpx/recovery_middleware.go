package httpx

import (
	"log"
	"net/http"
	"runtime/debug"
)

// RecoveryMiddleware turns a handler panic into a 500 INTERNAL_ERROR body
// unless the handler already started the response. The log line names the
// route and caller so a failing endpoint can be found from one entry.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			subject := SubjectFrom(r)
			if rl := requestLogFrom(r.Context()); rl != nil && rl.subject != "" {
				subject = rl.subject
			}
			rw, tracked := w.(*responseWriter)
			started := tracked && rw.headerWritten
			log.Printf("panic recovered: request_id=%s route=%q method=%s subject=%s response_started=%t error=%v stack=%s",
				orDash(RequestIDFrom(r)), routeOf(r), r.Method, orDash(subject), started, err, debug.Stack())

			if !started {
				JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
