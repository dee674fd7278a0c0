package ctxutil

import "context"

type traceDataKey struct{}

// TraceData travels with a request so logs from the engines can be joined to
// the HTTP access line.
type TraceData struct {
	TraceID     string
	RequestID   string
	DeveloperID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns kv pairs for the request identifiers present on ctx.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	out := make([]interface{}, 0, 6)
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.DeveloperID != "" {
		out = append(out, "developer_id", td.DeveloperID)
	}
	return out
}
