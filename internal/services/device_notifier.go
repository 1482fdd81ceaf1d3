package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/models"
	pkglogger "github.com/BradenHooton/authtrail/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender is the subset of the SES client used for notifications
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// DeviceNotifier emails a user when a new device signs in, including the pin that
// verifies the device.
type DeviceNotifier struct {
	client      EmailSender
	users       UserLookup
	fromAddress string
	logger      *slog.Logger
}

// NewDeviceNotifier creates a notifier backed by AWS SES
func NewDeviceNotifier(region, fromAddress string, users UserLookup, logger *slog.Logger) (*DeviceNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newDeviceNotifier(ses.NewFromConfig(cfg), fromAddress, users, logger), nil
}

func newDeviceNotifier(client EmailSender, fromAddress string, users UserLookup, logger *slog.Logger) *DeviceNotifier {
	return &DeviceNotifier{
		client:      client,
		users:       users,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// Emit sends the notification for DeviceCreated and ignores every other event
func (n *DeviceNotifier) Emit(ctx context.Context, event events.Event) {
	e, ok := event.(events.DeviceCreated)
	if !ok {
		return
	}
	if err := n.NotifyNewDevice(ctx, e.Device, e.Pin); err != nil {
		n.logger.Error("failed to send new device notification",
			slog.String("device_id", e.Device.ID),
			slog.Any("error", err),
		)
	}
}

// NotifyNewDevice emails the device owner
func (n *DeviceNotifier) NotifyNewDevice(ctx context.Context, device *models.Device, pin string) error {
	user, err := n.users.GetByID(ctx, device.UserID)
	if err != nil {
		return fmt.Errorf("failed to load device owner: %w", err)
	}

	subject, textBody, htmlBody := newDeviceMessage(user, device, pin)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("new device notification sent",
		slog.String("email", pkglogger.SanitizedEmail(user.Email)),
		slog.String("device_id", device.ID),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

func newDeviceMessage(user *models.User, device *models.Device, pin string) (subject, text, html string) {
	subject = "New sign-in from " + device.Label()

	var where string
	if device.IPAddress != "" {
		where = " from " + device.IPAddress
	}

	name := user.Name
	if name == "" {
		name = "there"
	}

	text = fmt.Sprintf(`Hi %s,

Your account was just used to sign in on a device we have not seen before:

    %s%s

If this was you, confirm the device with this code: %s

If this was not you, change your password and mark the device as untrusted.
`, name, device.Label(), where, pin)

	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi %s,</p>
    <p>Your account was just used to sign in on a device we have not seen before:</p>
    <p><strong>%s</strong>%s</p>
    <p>If this was you, confirm the device with this code:</p>
    <p style="font-size: 24px; letter-spacing: 4px;"><code>%s</code></p>
    <p>If this was not you, change your password and mark the device as untrusted.</p>
</body>
</html>
`, htmlEscape(name), htmlEscape(device.Label()), htmlEscape(where), pin)

	return subject, text, html
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
