package middleware

import (
	"context"
	"log/slog"

	"golang.org/x/exp/slices"

	tele "gopkg.in/telebot.v3"
)

// Allowlist drops updates from senders outside the allowed set. An empty
// allowlist lets everyone through.
type Allowlist struct {
	AllowedUserIds []int64
}

func (a *Allowlist) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if len(a.AllowedUserIds) == 0 {
				return next(c)
			}
			sender := c.Sender()
			if sender == nil || !slices.Contains(a.AllowedUserIds, sender.ID) {
				ctx := c.Get("requestContext").(context.Context)
				slog.InfoContext(ctx, "Dropping update from disallowed sender")
				return nil
			}
			return next(c)
		}
	}
}
