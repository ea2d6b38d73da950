package dispatcher

import (
	"context"

	"github.com/osusproperties/brokerage-core/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// Filter wraps h so it only runs for events accepted by pred
func Filter(pred func(evt *event.Event) bool, h Handler) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if !pred(evt) {
			return nil
		}
		return h(ctx, evt)
	}
}
