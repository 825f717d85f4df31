package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	traceDataKey   ctxKey = "trace_data"
	requestDataKey ctxKey = "request_data"
)

// TraceData carries request correlation identifiers across the HTTP and job
// boundaries.
type TraceData struct {
	TraceID   string
	RequestID string
}

// RequestData identifies the authenticated admin behind a request.
type RequestData struct {
	UserID uuid.UUID
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	if td == nil {
		return ctx
	}
	return context.WithValue(ctx, traceDataKey, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey).(*TraceData)
	return td
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	if rd == nil {
		return ctx
	}
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey).(*RequestData)
	return rd
}
