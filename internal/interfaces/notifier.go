package interfaces

import (
	"context"
)

// Notifier delivers a formatted report message to one channel.
type Notifier interface {
	// Name identifies the channel ("telegram", "ntfy", "mail")
	Name() string

	// Send delivers the message. Implementations must not retain the message.
	Send(ctx context.Context, subject, message string) error
}
