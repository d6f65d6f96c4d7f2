// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/metrics"
)

// topicLocationRecorded carries notifications from ingestion to the
// delivery consumer.
const topicLocationRecorded = "location.recorded"

// drainIdleWait is how long the shutdown drain waits for another queued
// notification before deciding the queue is empty.
const drainIdleWait = 50 * time.Millisecond

// Dispatcher publishes notifications onto an in-process message channel
// and consumes them under supervision, delivering each to every
// configured delivery channel. Ingestion never blocks on or observes
// delivery outcomes.
//
// Dispatcher is a suture.Service: the supervisor runs Serve, which owns
// the consumer loop. Dispatch buffers until Serve is running.
type Dispatcher struct {
	pubsub       *gochannel.GoChannel
	messages     <-chan *message.Message
	channels     []Channel
	sendTimeout  time.Duration
	closeTimeout time.Duration
	cancel       context.CancelFunc
}

// NewDispatcher creates the dispatcher and subscribes it to the
// notification topic. Delivery starts when a supervisor runs Serve. With
// no channels the dispatcher still accepts Dispatch calls and drops every
// notification with a log line.
func NewDispatcher(cfg *config.NotifyConfig, channels ...Channel) (*Dispatcher, error) {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		newWatermillLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := pubsub.Subscribe(ctx, topicLocationRecorded)
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topicLocationRecorded, err)
	}

	return &Dispatcher{
		pubsub:       pubsub,
		messages:     messages,
		channels:     channels,
		sendTimeout:  cfg.SendTimeout,
		closeTimeout: cfg.CloseTimeout,
		cancel:       cancel,
	}, nil
}

// Dispatch queues a notification for asynchronous delivery. Never returns
// an error: publish failures are logged and the event's recorded state is
// unaffected.
func (d *Dispatcher) Dispatch(n *Notification) {
	if len(d.channels) == 0 {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		logging.Debug().Str("user_id", n.UserID).Msg("Notification dropped, no delivery channels configured")
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		logging.Error().Err(err).Str("user_id", n.UserID).Msg("Could not encode notification")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := d.pubsub.Publish(topicLocationRecorded, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		logging.Error().Err(err).Str("user_id", n.UserID).Msg("Could not queue notification")
	}
}

// Serve implements suture.Service. It consumes the subscription until the
// supervisor cancels the context, then drains queued notifications before
// returning. A closed subscription means the dispatcher was shut down for
// good, so the supervisor must not restart it.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		select {
		case msg, ok := <-d.messages:
			if !ok {
				return suture.ErrDoNotRestart
			}
			d.handle(msg)
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		}
	}
}

// String names the service in supervisor logs.
func (d *Dispatcher) String() string {
	return "notification-dispatcher"
}

// drain delivers notifications still queued at shutdown, bounded by the
// configured close timeout. The idle wait covers publishes that were in
// flight when the supervisor stopped.
func (d *Dispatcher) drain() {
	deadline := time.NewTimer(d.closeTimeout)
	defer deadline.Stop()

	for {
		select {
		case msg, ok := <-d.messages:
			if !ok {
				return
			}
			d.handle(msg)
		case <-deadline.C:
			logging.Warn().Msg("Notification drain timed out, queued notifications dropped")
			return
		case <-time.After(drainIdleWait):
			return
		}
	}
}

// handle decodes one queued message and delivers it to every channel.
func (d *Dispatcher) handle(msg *message.Message) {
	var n Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Could not decode notification")
		msg.Ack()
		return
	}

	for _, ch := range d.channels {
		d.deliver(ch, &n)
	}
	msg.Ack()
}

// deliver sends one notification through one channel with the configured
// timeout.
func (d *Dispatcher) deliver(ch Channel, n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := ch.Send(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		logging.Warn().
			Err(err).
			Str("channel", ch.Name()).
			Str("user_id", n.UserID).
			Msg("Notification delivery failed")
		return
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	logging.Debug().
		Str("channel", ch.Name()).
		Str("user_id", n.UserID).
		Msg("Notification delivered")
}

// Close releases the subscription and the underlying pubsub. Call after
// the supervisor has stopped Serve; queued notifications are drained
// there, not here.
func (d *Dispatcher) Close() error {
	err := d.pubsub.Close()
	d.cancel()
	return err
}
