// Package email sends transactional mail through AWS SES.
package email

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/feedora/backend/internal/logger"
	"go.uber.org/zap"
)

// Sender is the subset of the SES client used here.
type Sender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailService sends Feedora's account emails.
type EmailService struct {
	client    Sender
	fromEmail string
	fromName  string
	appURL    string
}

// NewEmailService loads AWS credentials for region and sends as fromEmail.
func NewEmailService(ctx context.Context, region, fromEmail, appURL string) (*EmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(ses.NewFromConfig(cfg), fromEmail, appURL), nil
}

// NewWithClient builds the service around an existing SES client.
func NewWithClient(client Sender, fromEmail, appURL string) *EmailService {
	return &EmailService{client: client, fromEmail: fromEmail, fromName: "Feedora", appURL: strings.TrimSuffix(appURL, "/")}
}

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

func (e *EmailService) resetMessage(name, token string) Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, url.QueryEscape(token))
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Reset your password</h1>
    <p>%s,</p>
    <p>We received a request to reset your Feedora password. The link below expires in 1 hour.</p>
    <p><a href="%s" style="display: inline-block; padding: 12px 24px; background: #ff7a45; color: #fff; text-decoration: none; border-radius: 6px;">Reset password</a></p>
    <p style="word-break: break-all; color: #666;">%s</p>
    <p>If you didn't ask for this, you can ignore this email.</p>
  </div>
</body>
</html>`, html.EscapeString(greeting), html.EscapeString(link), html.EscapeString(link))

	textBody := fmt.Sprintf(`%s,

We received a request to reset your Feedora password.
Open this link within 1 hour to choose a new one:

%s

If you didn't ask for this, you can ignore this email.
`, greeting, link)

	return Message{Subject: "Reset your Feedora password", HTML: htmlBody, Text: textBody}
}

// SendPasswordResetEmail mails a reset link carrying token.
func (e *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error {
	msg := e.resetMessage(name, token)
	if err := e.send(ctx, toEmail, msg); err != nil {
		return err
	}
	logger.Log.Info("Password reset email sent", zap.String("to", toEmail))
	return nil
}

func (e *EmailService) send(ctx context.Context, to string, msg Message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
			},
		},
	}
	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
