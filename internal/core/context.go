package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "import_ip"
	ctxKeyUserAgent contextKey = "import_ua"
)

// ContextWithClient records the caller's IP address and User-Agent so they
// can be stored on the import batch.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// MetaFromContext builds ImportMeta from values set by ContextWithClient.
func MetaFromContext(ctx context.Context, fileName string) ImportMeta {
	meta := ImportMeta{FileName: fileName}
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		meta.IPAddress = v
	}
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		meta.UserAgent = v
	}
	return meta
}
