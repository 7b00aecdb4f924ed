package notifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Mailer is the email collaborator consumed by the workflow orchestrators.
// Delivery is fire-and-forget from the workflow's perspective: a failed send
// must never roll back a committed status transition, so orchestrators log
// Send errors instead of propagating them.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sesMailer struct {
	client *sesv2.Client
	sender string
	logger *zap.Logger
}

// NewSESMailer builds a Mailer on Amazon SES.
func NewSESMailer(ctx context.Context, region, sender string, logger *zap.Logger) (Mailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &sesMailer{
		client: sesv2.NewFromConfig(cfg),
		sender: sender,
		logger: logger,
	}, nil
}

func (m *sesMailer) Send(ctx context.Context, to, subject, body string) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}
