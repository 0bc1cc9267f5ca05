package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/erain9/tickmatch/pkg/messaging"
)

// newConsumer creates the underlying sarama consumer. Tests replace it.
var newConsumer = sarama.NewConsumer

// EventConsumer reads event messages back off a Kafka topic
type EventConsumer struct {
	consumer sarama.Consumer
	topic    string
	done     chan struct{}
}

// NewEventConsumer creates a consumer attached to one broker
func NewEventConsumer(brokerAddr, topic string) (*EventConsumer, error) {
	consumer, err := newConsumer([]string{brokerAddr}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &EventConsumer{
		consumer: consumer,
		topic:    topic,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeEventMessages reads messages from the topic until Close is called,
// decoding each one and handing it to handler. A handler error stops the
// loop and is returned.
func (c *EventConsumer) ConsumeEventMessages(handler func(*messaging.EventMessage) error) error {
	partitionConsumer, err := c.consumer.ConsumePartition(c.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	for {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}

			var event messaging.EventMessage
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal event message: %w", err)
			}

			if err := handler(&event); err != nil {
				return err
			}
		case consumeErr, ok := <-partitionConsumer.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("consumer error: %w", consumeErr)
		case <-c.done:
			return nil
		}
	}
}

// Close stops any running consume loop and releases the consumer
func (c *EventConsumer) Close() error {
	close(c.done)
	return c.consumer.Close()
}
