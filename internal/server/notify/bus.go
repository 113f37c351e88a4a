// Package notify carries registration notifications from the registration
// engine to whoever delivers them. Messages go through watermill: an
// in-process channel by default, Kafka when brokers are configured.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Topic receives every registration notification.
const Topic = "eventhub.registrations"

// consumerGroup is the Kafka group the recorder joins.
const consumerGroup = "eventhub-notifications"

var (
	newKafkaPublisher = func(brokers []string, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, logger)
	}

	newKafkaSubscriber = func(brokers []string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       brokers,
			Unmarshaler:   kafka.DefaultMarshaler{},
			ConsumerGroup: consumerGroup,
		}, logger)
	}
)

// Bus publishes notifications and hands out a subscriber for the same
// transport.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	log        logging.Logger
}

// NewBus builds a Kafka-backed bus when brokers is non-empty and an
// in-process one otherwise.
func NewBus(brokers []string, log logging.Logger) (*Bus, error) {
	if log == nil {
		log = logging.Nop()
	}
	adapter := loggerAdapter(log)

	if len(brokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, adapter)
		return &Bus{publisher: ch, subscriber: ch, log: log}, nil
	}

	pub, err := newKafkaPublisher(brokers, adapter)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	sub, err := newKafkaSubscriber(brokers, adapter)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("kafka subscriber: %w", err)
	}
	return &Bus{publisher: pub, subscriber: sub, log: log}, nil
}

func loggerAdapter(log logging.Logger) watermill.LoggerAdapter {
	if s, ok := log.(interface{ Slog() *slog.Logger }); ok {
		return watermill.NewSlogLogger(s.Slog().With("module", "watermill"))
	}
	return watermill.NopLogger{}
}

// Notify encodes n as JSON and publishes it on Topic.
func (b *Bus) Notify(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(n.Kind))
	msg.SetContext(ctx)

	if err := b.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", Topic, err)
	}

	b.log.Debug(ctx, "notification published", "kind", string(n.Kind), "message_id", msg.UUID)
	return nil
}

// Subscriber returns the subscriber side of the bus.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Close shuts down both sides. For the in-process bus they are the same
// value and closing twice is harmless.
func (b *Bus) Close() error {
	return errors.Join(b.publisher.Close(), b.subscriber.Close())
}
