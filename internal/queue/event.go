// Package queue carries notification events over RabbitMQ so delivery
// runs outside the request that produced them.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/campus-booking/internal/notify"
)

// NotificationEvent is published after a reservation or inscription
// changed.  It carries everything the consumer needs to deliver without
// querying the primary database again.
type NotificationEvent struct {
	Messages   []notify.Message `json:"messages"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func decodeEvent(body []byte) (NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return NotificationEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	if len(ev.Messages) == 0 {
		return NotificationEvent{}, errors.New("event without messages")
	}
	return ev, nil
}
