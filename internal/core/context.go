package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client"

// Client describes who issued a request. It is attached to operation logs.
type Client struct {
	IP        string
	UserAgent string
}

// ContextWithClient stores c for operation logging.
func ContextWithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFromContext returns the stored client, or the zero Client.
func ClientFromContext(ctx context.Context) Client {
	if c, ok := ctx.Value(ctxKeyClient).(Client); ok {
		return c
	}
	return Client{}
}
