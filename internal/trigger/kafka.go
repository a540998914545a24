package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/metrics"
)

var (
	// defaultRetryMaxTime bounds in-place retries of one message.
	defaultRetryMaxTime = 5 * time.Minute
	// defaultRetryInitialInterval is the first delay between retries.
	defaultRetryInitialInterval = time.Second
)

// KafkaConsumer reads file notifications from a consumer group.
type KafkaConsumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler sarama.ConsumerGroupHandler
}

// NewKafkaConsumer joins the consumer group described by cfg.
func NewKafkaConsumer(cfg config.KafkaConfig, proc Processor) (*KafkaConsumer, error) {
	saramaConfig, err := saramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating consumer group client: %w", err)
	}
	return &KafkaConsumer{
		group:   group,
		topics:  []string{cfg.Topic},
		handler: &kafkaHandler{proc: proc, retryMaxTime: defaultRetryMaxTime},
	}, nil
}

func saramaConfig(cfg config.KafkaConfig) (*sarama.Config, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid KAFKA_VERSION: %w", err)
	}

	sc := sarama.NewConfig()
	sc.Version = version
	sc.ClientID = "csvload"
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	if cfg.InitialOffset == "oldest" {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	return sc, nil
}

// Run consumes until ctx is done. Session errors are retried with
// exponential backoff.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 0

	for {
		err := c.group.Consume(ctx, c.topics, c.handler)
		if ctx.Err() != nil || errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err == nil {
			// Rebalance; rejoin immediately.
			expBackoff.Reset()
			continue
		}

		delay := expBackoff.NextBackOff()
		metrics.RetryCount.WithLabelValues("kafka_session").Inc()
		slog.Warn("error while consuming; will retry", "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// Close leaves the consumer group.
func (c *KafkaConsumer) Close() error {
	return c.group.Close()
}

var _ sarama.ConsumerGroupHandler = &kafkaHandler{}

// kafkaHandler processes one message at a time and marks it once handled.
type kafkaHandler struct {
	proc         Processor
	retryMaxTime time.Duration
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h *kafkaHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (h *kafkaHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages for one partition in order.
func (h *kafkaHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	slog.Debug("consuming claim", "topic", claim.Topic(), "partition", claim.Partition(), "offset", claim.InitialOffset())

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.handle(ctx, msg) {
				// Session ended mid-retry; leave the offset for the next owner.
				return nil
			}
			session.MarkMessage(msg, "")
		// Must return when the session ends or the rebalance stalls.
		case <-ctx.Done():
			return nil
		}
	}
}

// handle processes msg, retrying retryable failures in place. It returns
// false if ctx ended before the message was settled.
func (h *kafkaHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	log := slog.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = defaultRetryInitialInterval
	expBackoff.MaxElapsedTime = h.retryMaxTime

	op := func() error {
		if Handle(ctx, h.proc, "kafka", msg.Value) == Failed {
			return errRetry
		}
		return nil
	}
	notify := func(_ error, delay time.Duration) {
		metrics.RetryCount.WithLabelValues("kafka_message").Inc()
		log.Warn("message failed; retrying", "delay", delay)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(expBackoff, ctx), notify); err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Error("giving up on message", "error", err)
	}
	return true
}

var errRetry = errors.New("retryable failure")
