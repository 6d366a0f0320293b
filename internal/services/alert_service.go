package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/edlume/authtrail/internal/models"
	pkglogger "github.com/edlume/authtrail/pkg/logger"
)

// AlertService emails the security contact when an attempt is flagged at
// write time. Delivery is best effort: it runs detached from the write path
// and failures are only logged.
type AlertService struct {
	sesClient       *ses.Client
	fromAddress     string
	securityAddress string
	logger          *slog.Logger
}

// NewAlertService creates a new AWS SES backed AlertService
func NewAlertService(region, fromAddress, securityAddress string, logger *slog.Logger) (*AlertService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AlertService{
		sesClient:       ses.NewFromConfig(cfg),
		fromAddress:     fromAddress,
		securityAddress: securityAddress,
		logger:          logger,
	}, nil
}

// NotifySuspicious dispatches the alert email on its own goroutine with its
// own timeout so the ingest write path never waits on SES.
func (s *AlertService) NotifySuspicious(attempt *models.LoginAttempt) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.send(ctx, attempt); err != nil {
			s.logger.Error("failed to send suspicious activity alert",
				slog.String("attempt_id", attempt.ID.String()),
				slog.Any("error", err))
		}
	}()
}

func (s *AlertService) send(ctx context.Context, attempt *models.LoginAttempt) error {
	reasons := make([]string, len(attempt.SuspiciousReasons))
	for i, r := range attempt.SuspiciousReasons {
		reasons[i] = string(r)
	}

	textBody := fmt.Sprintf(`Suspicious login activity detected.

Attempt ID: %s
Email:      %s
IP address: %s
Time (UTC): %s
Reasons:    %s

Review the attempt in the security dashboard.
`,
		attempt.ID,
		attempt.Email,
		attempt.IPAddress,
		attempt.AttemptedAt.UTC().Format(time.RFC3339),
		strings.Join(reasons, ", "),
	)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.securityAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Suspicious login activity detected"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("suspicious activity alert sent",
		slog.String("attempt_id", attempt.ID.String()),
		slog.String("email", pkglogger.SanitizedEmail(attempt.Email)),
		slog.String("message_id", *result.MessageId))

	return nil
}
