package services

import (
	"fmt"
	"log/slog"
	"time"

	"org-dashboard/utils"

	pubnub "github.com/pubnub/go"
)

// Publisher delivers a message on a realtime channel.
type Publisher interface {
	Publish(channel string, message map[string]any) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

// NewPubNubPublisher wraps a PubNub client. It returns nil when pn is nil so
// an unconfigured deployment simply publishes nothing.
func NewPubNubPublisher(pn *pubnub.PubNub) Publisher {
	if pn == nil {
		return nil
	}
	return &pubnubPublisher{pn: pn}
}

func (p *pubnubPublisher) Publish(channel string, message map[string]any) error {
	_, status, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return err
	}
	if status.Error != nil {
		return status.Error
	}
	if status.StatusCode >= 400 {
		return fmt.Errorf("pubnub publish returned status %d", status.StatusCode)
	}
	return nil
}

// Notifier tells open dashboards that the schedule list changed so they can
// re-fetch it.
type Notifier struct {
	publisher Publisher
	channel   string
	breaker   *utils.CircuitBreaker
}

func NewNotifier(publisher Publisher, channel string, breaker *utils.CircuitBreaker) *Notifier {
	return &Notifier{
		publisher: publisher,
		channel:   channel,
		breaker:   breaker,
	}
}

// SchedulesChanged publishes a change event. Failures are logged only; a
// missed notification never fails the mutation that caused it.
func (n *Notifier) SchedulesChanged(action, scheduleID string) {
	if n == nil || n.publisher == nil {
		return
	}

	message := map[string]any{
		"type":        "schedules_changed",
		"action":      action,
		"schedule_id": scheduleID,
		"at":          time.Now().Unix(),
	}

	publish := func() error {
		return n.publisher.Publish(n.channel, message)
	}

	var err error
	if n.breaker != nil {
		err = n.breaker.Execute(publish)
	} else {
		err = publish()
	}
	if err != nil {
		slog.Warn("Failed to publish schedule change",
			"channel", n.channel,
			"action", action,
			"scheduleID", scheduleID,
			"error", err,
		)
	}
}
