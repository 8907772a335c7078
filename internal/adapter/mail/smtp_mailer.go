package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/config"
	"github.com/smallbiznis/valora-accounts/internal/service"
)

// SMTPMailer implements service.Mailer over SMTP. Templates are compiled
// once at construction and never mutated afterwards.
type SMTPMailer struct {
	client    *gomail.Client
	from      string
	appURL    string
	templates map[string]*template.Template
	logger    *zap.Logger
}

var _ service.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds the transport and compiles the named templates.
func NewSMTPMailer(cfg config.Config, logger *zap.Logger) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.EmailPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.EmailUser != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.EmailUser),
			gomail.WithPassword(cfg.EmailPassword),
		)
	}

	client, err := gomail.NewClient(cfg.EmailHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	templates, err := compileTemplates()
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		client:    client,
		from:      cfg.EmailFrom,
		appURL:    cfg.AppURL,
		templates: templates,
		logger:    logger,
	}, nil
}

// SendWelcome greets a freshly created account.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, userName string) error {
	return m.send(ctx, to, "Welcome to our platform!", templateWelcome, map[string]any{
		"UserName":  userName,
		"LoginLink": m.appURL + "/login",
		"Year":      time.Now().Year(),
	})
}

// SendPasswordReset mails the reset link carrying the one-shot token.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, userName, resetToken string) error {
	return m.send(ctx, to, "Password Reset Request", templatePasswordReset, map[string]any{
		"UserName":  userName,
		"ResetLink": m.appURL + "/reset-password?token=" + resetToken,
		"Year":      time.Now().Year(),
	})
}

// SendOrganizationInvite notifies the invitee.
func (m *SMTPMailer) SendOrganizationInvite(ctx context.Context, to, organizationName, inviterName string) error {
	subject := fmt.Sprintf("Invitation to join %s", organizationName)
	return m.send(ctx, to, subject, templateOrganizationInvite, map[string]any{
		"OrganizationName": organizationName,
		"InviterName":      inviterName,
		"InviteLink":       m.appURL + "/accept-invite",
		"Year":             time.Now().Year(),
	})
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	tmpl, ok := m.templates[templateName]
	if !ok {
		return fmt.Errorf("email template %s not found", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render template %s: %w", templateName, err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("email sent", zap.String("to", to), zap.String("template", templateName))
	return nil
}
