package notify

import (
	"context"
	"time"
)

type ctxKey int

const clientCtxKey ctxKey = 1

func WithClient(ctx context.Context, c *Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientCtxKey, c)
}

func ClientFromContext(ctx context.Context) *Client {
	if ctx == nil {
		return nil
	}
	v := ctx.Value(clientCtxKey)
	c, _ := v.(*Client)
	return c
}

// BestEffort sends a notification with a short independent deadline,
// swallowing any error. Used on workflow failure paths where the outcome is
// already decided and only the user message remains.
func BestEffort(ctx context.Context, recipient, kind, level, title string, details map[string]any) {
	c := ClientFromContext(ctx)
	if c == nil {
		return
	}
	if c.Enabled != nil && !c.Enabled(ctx) {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Send(sendCtx, Notification{
		Recipient: recipient,
		Kind:      kind,
		Level:     level,
		Title:     title,
		Details:   details,
	})
}
