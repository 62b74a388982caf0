package models

import "context"

type requestInfoKey struct{}

// RequestInfo is the provenance attached to activity and audit records.
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}
