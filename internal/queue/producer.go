// Package queue implements the at-least-once job queue over Redis lists.
// Jobs are pushed with LPUSH and popped with BRPOP, so the list behaves as
// FIFO per producer. Payloads that cannot be published or processed are
// routed to a dead-letter list under the same delivery discipline.
package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"design-assistant/internal/common/errors"
	"design-assistant/internal/common/logger"
	"design-assistant/internal/common/metrics"
)

// Alerter is notified when a payload lands on the dead-letter topic.
// Implementations must not block the queue path for long.
type Alerter interface {
	DeadLetterAlert(ctx context.Context, stage, topic string, payload []byte)
}

// Producer publishes job payloads. Publish has no error return: failures
// are observed here, dead-lettered, and logged, never surfaced to the
// request path that enqueued the job.
type Producer struct {
	client  *redis.Client
	topic   string
	dlq     string
	alerter Alerter
	logger  logger.Logger
}

func NewProducer(client *redis.Client, topic, dlq string, log logger.Logger) *Producer {
	return &Producer{
		client: client,
		topic:  topic,
		dlq:    dlq,
		logger: log.WithFields(map[string]interface{}{"component": "queue-producer", "topic": topic}),
	}
}

// WithAlerter attaches a dead-letter alerter.
func (p *Producer) WithAlerter(a Alerter) *Producer {
	p.alerter = a
	return p
}

// Publish pushes the payload onto the job topic. On failure the payload is
// dead-lettered and the error is swallowed.
func (p *Producer) Publish(ctx context.Context, payload []byte) {
	if err := p.client.LPush(ctx, p.topic, payload).Err(); err != nil {
		stdErr := errors.NewQueuePublishFailedError(p.topic, err)
		p.logger.WithError(stdErr).Error("publish failed, routing to dead-letter topic", map[string]interface{}{
			"dlqTopic": p.dlq,
			"category": errors.GetErrorCategory(stdErr.Code),
		})
		p.deadLetter(ctx, "publish", payload)
	}
}

func (p *Producer) deadLetter(ctx context.Context, stage string, payload []byte) {
	metrics.JobsDeadLettered.WithLabelValues(stage).Inc()
	if err := p.client.LPush(ctx, p.dlq, payload).Err(); err != nil {
		// The payload is lost at this point; the log line is the only trace.
		p.logger.WithError(err).Error("dead-letter publish failed, payload dropped", map[string]interface{}{
			"stage":    stage,
			"dlqTopic": p.dlq,
		})
	}
	if p.alerter != nil {
		p.alerter.DeadLetterAlert(ctx, stage, p.dlq, payload)
	}
}

// DeadLetterDepth reports the current length of the dead-letter list.
func (p *Producer) DeadLetterDepth(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.dlq).Result()
}

// Ping verifies queue connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.client.Ping(ctx).Err()
}
