//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"social_syncer/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func testConfig(url, name string) Config {
	return Config{
		URL:        url,
		Exchange:   "test-exchange-" + name,
		RoutingKey: "test-posts-" + name,
		QueueName:  "test-queue-" + name,
	}
}

func testPost(platform domain.Platform, id string) *domain.StoredPost {
	post := domain.NewStoredPost(domain.FeedItem{
		ExternalID:  id,
		Platform:    platform,
		PublishedAt: time.Now().Truncate(time.Millisecond),
		Title:       "Post " + id,
		Count:       2_340_000,
		MediaURLs:   []string{"https://cdn.test/" + id + ".jpg"},
	})
	post.ID = 1
	return &post
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	pub, err := NewRabbitMQ(testConfig(s.amqpURL, "conn"), s.logger)
	s.NoError(err)
	s.NotNil(pub)

	s.NoError(pub.Close())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishCreate() {
	cfg := testConfig(s.amqpURL, "create")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	s.NoError(pub.Publish(s.ctx, "run-create", testPost(domain.PlatformYouTube, "vidA"), true))

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	var received PostMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal("create", received.Action)
	s.Equal("run-create", received.RunID)
	s.Equal("vidA", received.Post.ExternalID)
	s.Equal("2.34M", received.Post.CountDisplay)
	s.Equal("run-create", msg.CorrelationId)
	s.Equal("youtube:vidA", msg.MessageId)
	s.Equal(cfg.RoutingKeyFor(domain.PlatformYouTube), msg.RoutingKey)
	s.Equal("youtube", msg.Headers["platform"])
	s.Equal("create", msg.Headers["action"])
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishUpdate() {
	cfg := testConfig(s.amqpURL, "update")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	s.NoError(pub.Publish(s.ctx, "run-update", testPost(domain.PlatformInstagram, "p2"), false))

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	var received PostMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal("update", received.Action)
	s.Equal(domain.PlatformInstagram, received.Post.Platform)
	s.Len(received.Post.Media, 1)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_AllPlatformsReachQueue() {
	cfg := testConfig(s.amqpURL, "fanin")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	for _, p := range domain.Platforms {
		s.Require().NoError(pub.Publish(s.ctx, "run-fanin", testPost(p, "x-"+string(p)), true))
	}

	var keys []string
	for range domain.Platforms {
		msg := s.consumeMessage(cfg)
		s.Require().NotNil(msg)
		keys = append(keys, msg.RoutingKey)
	}
	s.ElementsMatch([]string{
		cfg.RoutingKeyFor(domain.PlatformYouTube),
		cfg.RoutingKeyFor(domain.PlatformInstagram),
		cfg.RoutingKeyFor(domain.PlatformTwitter),
	}, keys)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := testConfig(s.amqpURL, "persist")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	s.NoError(pub.Publish(s.ctx, "run-persist", testPost(domain.PlatformTwitter, "300"), true))

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
