// Package kit carries request-scoped values and the transport-neutral
// Endpoint shape shared by the HTTP routes, the MCP tools and the CLI.
package kit

import "context"

type contextKey string

const (
	TransportKey contextKey = "kit_transport" // "http", "mcp", "cli"
	RequestIDKey contextKey = "kit_request_id"
	SourceKey    contextKey = "kit_source" // uploaded file or archive name
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithSource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, SourceKey, name)
}
func GetSource(ctx context.Context) string {
	v, _ := ctx.Value(SourceKey).(string)
	return v
}
