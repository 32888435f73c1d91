package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	subjectKey    contextKey = "subject"
	roleKey       contextKey = "role"
	requestIDKey  contextKey = "requestID"
	requestLogKey contextKey = "requestLog"
)

// requestLog is filled in by inner handlers and read back by the access log
// once the response is done.
type requestLog struct {
	subject string
}

func contextWithRequestLog(ctx context.Context) (context.Context, *requestLog) {
	rl := &requestLog{}
	return context.WithValue(ctx, requestLogKey, rl), rl
}

func requestLogFrom(ctx context.Context) *requestLog {
	rl, _ := ctx.Value(requestLogKey).(*requestLog)
	return rl
}

// SubjectFrom retrieves the token subject from the request context.
func SubjectFrom(r *http.Request) string {
	if v, ok := r.Context().Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

// RoleFrom retrieves the token role from the request context.
func RoleFrom(r *http.Request) string {
	if v, ok := r.Context().Value(roleKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithSubject returns a new context with the token subject and role.
// The subject is also reported to the enclosing access log line.
func ContextWithSubject(ctx context.Context, subject, role string) context.Context {
	if rl := requestLogFrom(ctx); rl != nil {
		rl.subject = subject
	}
	ctx = context.WithValue(ctx, subjectKey, subject)
	return context.WithValue(ctx, roleKey, role)
}

func RequestIDFrom(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
