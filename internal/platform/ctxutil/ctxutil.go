package ctxutil

import "context"

type traceDataKey struct{}
type authDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

// AuthData is what the auth middleware learned from the bearer token. The raw
// token is kept so it can be forwarded to the next pipeline stage.
type AuthData struct {
	Subject string
	Token   string
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

func WithAuthData(ctx context.Context, ad *AuthData) context.Context {
	return context.WithValue(ctx, authDataKey{}, ad)
}

func GetAuthData(ctx context.Context) *AuthData {
	if ad, ok := ctx.Value(authDataKey{}).(*AuthData); ok {
		return ad
	}
	return nil
}

// AuthToken returns the bearer token attached to ctx, or "".
func AuthToken(ctx context.Context) string {
	if ad := GetAuthData(ctx); ad != nil {
		return ad.Token
	}
	return ""
}
