// Package notify delivers out-of-band signals: completion email to the
// user whose queued design finished, and operator alerts when a payload
// lands on the dead-letter topic. Both channels are config-gated and
// best-effort; a delivery failure is logged and dropped.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"design-assistant/internal/common/config"
	"design-assistant/internal/common/logger"
)

type Notifier struct {
	cfg    config.AlertsConfig
	email  *ses.Client
	alerts *sns.Client
	logger logger.Logger
}

// NewNotifier builds a Notifier from the alerts configuration. When both
// channels are disabled it returns a notifier that does nothing.
func NewNotifier(ctx context.Context, cfg config.AlertsConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
	if !cfg.Email.Enabled && !cfg.SNS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Email.Enabled {
		n.email = ses.NewFromConfig(awsCfg)
	}
	if cfg.SNS.Enabled {
		n.alerts = sns.NewFromConfig(awsCfg)
	}
	return n, nil
}

// DesignCompleted emails the owner of a queued design that finished.
func (n *Notifier) DesignCompleted(ctx context.Context, email string, designID int64, prompt string) {
	if n.email == nil {
		return
	}

	subject := fmt.Sprintf("Your system design #%d is ready", designID)
	body := fmt.Sprintf(
		"Your design request has finished processing.\n\nRequest: %s\nDesign ID: %d\n\nFetch it from the designs API.\n",
		prompt, designID,
	)

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.WithError(err).Warn("completion email failed", map[string]interface{}{
			"designId": designID,
		})
		return
	}
	n.logger.Info("completion email sent", map[string]interface{}{"designId": designID})
}

// DeadLetterAlert publishes an operator alert for a dead-lettered payload.
// The payload itself stays on the dead-letter topic; the alert only carries
// where to look.
func (n *Notifier) DeadLetterAlert(ctx context.Context, stage, topic string, payload []byte) {
	if n.alerts == nil {
		return
	}

	message := fmt.Sprintf(
		"A design job payload was dead-lettered.\nStage: %s\nTopic: %s\nPayload bytes: %d\n",
		stage, topic, len(payload),
	)
	_, err := n.alerts.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.SNS.TopicARN),
		Subject:  aws.String("design job dead-lettered"),
		Message:  aws.String(message),
	})
	if err != nil {
		n.logger.WithError(err).Warn("dead-letter alert failed", map[string]interface{}{
			"stage": stage,
			"topic": topic,
		})
	}
}
