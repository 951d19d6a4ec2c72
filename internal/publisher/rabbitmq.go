// Package publisher announces committed posts on a RabbitMQ topic exchange
// so the site can rebuild pages without polling the database.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"social_syncer/internal/domain"
)

var errNacked = errors.New("broker nacked message")

type Config struct {
	URL      string
	Exchange string
	// RoutingKey is the prefix of the per-platform keys, e.g. "posts"
	// publishes youtube posts on "posts.youtube".
	RoutingKey string
	QueueName  string
}

// RoutingKeyFor returns the key a post of platform is published under.
func (c Config) RoutingKeyFor(platform domain.Platform) string {
	return c.RoutingKey + "." + string(platform)
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
	logger  *slog.Logger
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"binding", cfg.RoutingKey+".#",
	)

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// declareTopology creates a durable topic exchange and binds the site
// queue to every platform key under the configured prefix.
func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey+".#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PostMessage is the event emitted for every committed post.
type PostMessage struct {
	Action    string            `json:"action"` // "create" or "update"
	RunID     string            `json:"run_id"`
	Post      domain.StoredPost `json:"post"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewPostMessage(runID string, post *domain.StoredPost, isNew bool, now time.Time) PostMessage {
	action := "update"
	if isNew {
		action = "create"
	}
	return PostMessage{
		Action:    action,
		RunID:     runID,
		Post:      *post,
		Timestamp: now.UTC(),
	}
}

// Publish sends the post and waits for the broker to confirm it.
func (r *RabbitMQ) Publish(ctx context.Context, runID string, post *domain.StoredPost, isNew bool) error {
	now := time.Now()
	msg := NewPostMessage(runID, post, isNew, now)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.cfg.RoutingKeyFor(post.Platform)
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.cfg.Exchange, key, false, false,
		amqp.Publishing{
			DeliveryMode:  amqp.Persistent,
			ContentType:   "application/json",
			CorrelationId: runID,
			MessageId:     fmt.Sprintf("%s:%s", post.Platform, post.ExternalID),
			Headers:       amqp.Table{"platform": string(post.Platform), "action": msg.Action},
			Body:          body,
			Timestamp:     now,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("publish %s: %w", key, errNacked)
	}

	r.logger.Debug("published post",
		"routing_key", key,
		"post_id", post.ExternalID,
		"action", msg.Action,
	)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
