package notify

import (
	"context"
	"fmt"
)

// Notifier delivers the birthday message through an outbound channel.
// Implementations must surface failures as errors; the dispatcher's
// status transitions are the source of truth for "was this sent", so a
// silently swallowed failure would be recorded as a successful send.
type Notifier interface {
	Send(ctx context.Context, firstName, lastName string) error
}

// Message renders the fixed birthday greeting for a user.
func Message(firstName, lastName string) string {
	return fmt.Sprintf("Hey, %s %s it's your birthday", firstName, lastName)
}
