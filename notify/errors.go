package notify

import (
	"fmt"

	"github.com/easywave/rx22gw/wire"
)

// nonSuccessNotificationError reports a Receive-Notification completion
// whose status was not Success (for example Superseded or Canceled), which the
// dispatcher treats as a reportable condition rather than an Event.
type nonSuccessNotificationError struct {
	Status wire.Status
}

func (e *nonSuccessNotificationError) Error() string {
	return fmt.Sprintf("notify: notification status %s", e.Status)
}
