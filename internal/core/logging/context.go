package logging

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	queryKeyKey  contextKey = "query_key"
)

// WithRequestID adds an outbound request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithQueryKey adds the key of the read or write being executed.
func WithQueryKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, queryKeyKey, key)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetQueryKey retrieves the query key from the context.
// Returns empty string if not present.
func GetQueryKey(ctx context.Context) string {
	if key, ok := ctx.Value(queryKeyKey).(string); ok {
		return key
	}
	return ""
}
