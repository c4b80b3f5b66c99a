package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service. An empty fromEmail
// yields a disabled service whose sends are no-ops.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): password reset to %s", toEmail)
		return nil
	}

	resetLink := fmt.Sprintf("%s/auth/reset-password?token=%s", s.appBaseURL, resetToken)
	subject := "Reset Your ChoreBoard Password"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Password Reset Request</h2>
	<p>Hi %s,</p>
	<p>We received a request to reset your ChoreBoard password.</p>
	<p><a href="%s">Reset Password</a></p>
	<p>Or copy and paste this link into your browser:</p>
	<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
	<p><strong>This link will expire in 1 hour.</strong></p>
	<p>If you didn't request a password reset, you can safely ignore this email.</p>
</body>
</html>
`, toName, resetLink, resetLink)

	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset your ChoreBoard password.

Reset it here: %s

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email.
`, toName, resetLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendTaskSubmittedEmail notifies a parent that a child submitted a task
// for approval.
func (s *EmailService) SendTaskSubmittedEmail(ctx context.Context, toEmail, toName, childName, taskTitle string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): task submitted to %s", toEmail)
		return nil
	}

	subject := fmt.Sprintf("%s finished a task", childName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Task Ready for Review</h2>
	<p>Hi %s,</p>
	<p><strong>%s</strong> marked the task <strong>%s</strong> as done and is waiting for your approval.</p>
	<p><a href="%s/tasks">Review it in ChoreBoard</a></p>
</body>
</html>
`, toName, childName, taskTitle, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

%s marked the task "%s" as done and is waiting for your approval.

Review it here: %s/tasks
`, toName, childName, taskTitle, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendChildPairedEmail notifies a parent that a device was paired to a
// child profile.
func (s *EmailService) SendChildPairedEmail(ctx context.Context, toEmail, toName, childName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): child paired to %s", toEmail)
		return nil
	}

	subject := fmt.Sprintf("A device was paired to %s", childName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Device Paired</h2>
	<p>Hi %s,</p>
	<p>A device just paired to <strong>%s</strong>'s profile using a pairing code.</p>
	<p>If you didn't expect this, open ChoreBoard and review the profile.</p>
</body>
</html>
`, toName, childName)

	textBody := fmt.Sprintf(`Hi %s,

A device just paired to %s's profile using a pairing code.

If you didn't expect this, open ChoreBoard and review the profile.
`, toName, childName)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
