// Package messaging delivers game event notifications to the outside world.
// Events are observable side effects, not state: a lost notification never
// corrupts a session.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// EventPublisher publishes discrete game events (new quest, loot, game over).
type EventPublisher interface {
	PublishGameEvent(ctx context.Context, event models.GameEvent) error
}

// rabbitMQEventPublisher sends events to a durable RabbitMQ queue.
type rabbitMQEventPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQEventPublisher opens a channel on the given connection and
// declares the events queue. The channel lives until the connection closes.
func NewRabbitMQEventPublisher(conn *amqp.Connection, queueName string) (EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("event publisher: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQEventPublisher{channel: ch, queueName: queueName}, nil
}

func (p *rabbitMQEventPublisher) PublishGameEvent(ctx context.Context, event models.GameEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event publisher: failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("event publisher: failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// logEventPublisher writes events to the log. Used when no broker is
// configured so the rest of the system does not care about the difference.
type logEventPublisher struct {
	logger *zap.Logger
}

// NewLogEventPublisher returns a publisher that only logs.
func NewLogEventPublisher(logger *zap.Logger) EventPublisher {
	return &logEventPublisher{logger: logger.Named("GameEvents")}
}

func (p *logEventPublisher) PublishGameEvent(_ context.Context, event models.GameEvent) error {
	p.logger.Info("Game event",
		zap.String("type", string(event.Type)),
		zap.Stringer("gameID", event.GameID),
		zap.String("message", event.Message),
		zap.Strings("items", event.Items))
	return nil
}
