package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/binkeyit/storefront/internal/config"
	"github.com/binkeyit/storefront/internal/events"
)

// EmailMessage is a rendered outbound email.
type EmailMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers rendered emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// LogEmailSender logs messages instead of delivering them.
type LogEmailSender struct {
	logger *zap.Logger
}

// NewLogEmailSender builds the stub sender.
func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email queued",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

var (
	verifyEmailTemplate = template.Must(template.New("verify").Parse(
		`<p>Dear {{.Name}},</p>
<p>Thank you for registering with Binkeyit.</p>
<a href="{{.URL}}">Verify Email</a>`))

	forgotPasswordTemplate = template.Must(template.New("forgot").Parse(
		`<p>Dear {{.Name}},</p>
<p>You requested a password reset. Use the following OTP code to reset your password.</p>
<div style="font-size:20px;padding:20px;text-align:center;font-weight:800">{{.OTP}}</div>
<p>This OTP is valid until {{.ExpiresAt}}. Enter it on the Binkeyit website to proceed.</p>`))
)

// NotificationService turns account events into emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     EmailSender
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender EmailSender, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventUserLoggedIn, n.handleAudit)
	n.dispatcher.Subscribe(events.EventUserLoggedOut, n.handleAudit)
	n.dispatcher.Subscribe(events.EventPasswordReset, n.handleAudit)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	html, err := render(verifyEmailTemplate, map[string]string{"Name": payload.Name, "URL": payload.VerifyURL})
	if err != nil {
		return err
	}
	return n.send(ctx, EmailMessage{To: payload.Email, Subject: "Verify email from binkeyit", HTML: html})
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	html, err := render(forgotPasswordTemplate, map[string]string{
		"Name":      payload.Name,
		"OTP":       payload.OTP,
		"ExpiresAt": payload.ExpiresAt.Format("15:04 MST"),
	})
	if err != nil {
		return err
	}
	return n.send(ctx, EmailMessage{To: payload.Email, Subject: "Forgot password from Binkeyit", HTML: html})
}

func (n *NotificationService) handleAudit(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("user_id", event.UserID), zap.Time("at", event.Timestamp))
	return nil
}

func (n *NotificationService) send(ctx context.Context, msg EmailMessage) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || n.sender == nil {
		n.logger.Debug("email disabled", zap.String("subject", msg.Subject))
		return nil
	}
	msg.From = n.cfg.EmailFrom
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("send email", zap.String("to", msg.To), zap.Error(err))
		return err
	}
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
