package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "design-assistant/internal/common/errors"
	"design-assistant/internal/common/logger"
	"design-assistant/internal/common/metrics"
)

// Handler processes one dequeued payload. A non-nil error dead-letters the
// raw payload; a nil error completes the delivery.
type Handler func(ctx context.Context, payload []byte) error

// Consumer drains the job topic with blocking pops and hands each payload
// to the handler. Handler failures never stop the loop: the payload is
// dead-lettered and the consumer moves on to the next job.
type Consumer struct {
	client      *redis.Client
	topic       string
	dlq         string
	pollTimeout time.Duration
	handler     Handler
	alerter     Alerter
	logger      logger.Logger
}

func NewConsumer(client *redis.Client, topic, dlq string, pollTimeout time.Duration, handler Handler, log logger.Logger) *Consumer {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &Consumer{
		client:      client,
		topic:       topic,
		dlq:         dlq,
		pollTimeout: pollTimeout,
		handler:     handler,
		logger:      log.WithFields(map[string]interface{}{"component": "queue-consumer", "topic": topic}),
	}
}

// WithAlerter attaches a dead-letter alerter.
func (c *Consumer) WithAlerter(a Alerter) *Consumer {
	c.alerter = a
	return c
}

// Run polls the job topic until the context is canceled. It is meant to be
// launched once as its own goroutine; jobs are processed one at a time in
// arrival order.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", map[string]interface{}{
		"pollTimeout": c.pollTimeout.String(),
	})
	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("consumer stopping", nil)
			return err
		}

		res, err := c.client.BRPop(ctx, c.pollTimeout, c.topic).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping", nil)
				return ctx.Err()
			}
			c.logger.WithError(err).Warn("queue poll failed, retrying", nil)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		c.process(ctx, []byte(res[1]))
	}
}

// process is the per-delivery error boundary.
func (c *Consumer) process(ctx context.Context, payload []byte) {
	if err := c.handler(ctx, payload); err != nil {
		stdErr := stderrors.NewConsumptionFailedError(c.topic, err)
		c.logger.WithError(stdErr).Error("job processing failed, routing to dead-letter topic", map[string]interface{}{
			"dlqTopic": c.dlq,
			"category": stderrors.GetErrorCategory(stdErr.Code),
		})
		c.deadLetter(ctx, payload)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, payload []byte) {
	metrics.JobsDeadLettered.WithLabelValues("consume").Inc()
	if err := c.client.LPush(ctx, c.dlq, payload).Err(); err != nil {
		c.logger.WithError(err).Error("dead-letter publish failed, payload dropped", map[string]interface{}{
			"dlqTopic": c.dlq,
		})
	}
	if c.alerter != nil {
		c.alerter.DeadLetterAlert(ctx, "consume", c.dlq, payload)
	}
}
