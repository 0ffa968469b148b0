package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// MessageSender delivers composed messages. *gomail.Dialer satisfies it.
type MessageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	AppURL    string
}

type EmailData struct {
	Subject  string
	To       []string
	Template string
	Data     interface{}
}

// Embedded email templates
var emailTemplates = map[string]string{
	"confirm_email": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Confirm your email</h2>
    </div>

    <div class="content">
        <p>Hello {{.Name}},</p>
        <p>Thanks for signing up. Please confirm your email address to finish setting up your account:</p>

        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Confirm Email</a>
        </p>

        <p>This link will expire in 48 hours.</p>

        <p>Or copy and paste this link into your browser:<br>
        <small>{{.Link}}</small></p>
    </div>

    <div class="footer">
        <p>If you didn't create an account, you can safely ignore this email.</p>
        <p>© {{.Year}} ProjectFlow. All rights reserved.</p>
    </div>
</body>
</html>`,

	"password_reset": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Password Reset Request</h2>
    </div>

    <div class="content">
        <p>Hello {{.Name}},</p>
        <p>We received a request to reset your password. Click the button below to proceed:</p>

        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Reset Password</a>
        </p>

        <p>If you didn't request a password reset, please ignore this email. This link will expire in 24 hours.</p>

        <p>Or copy and paste this link into your browser:<br>
        <small>{{.Link}}</small></p>
    </div>

    <div class="footer">
        <p>For security reasons, don't share this link with anyone.</p>
        <p>© {{.Year}} ProjectFlow. All rights reserved.</p>
    </div>
</body>
</html>`,

	"welcome": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #27ae60; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Welcome aboard</h2>
    </div>

    <div class="content">
        <p>Hello {{.Name}},</p>
        <p>Your email is confirmed and your account is ready. Create your first project to get started.</p>

        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Open ProjectFlow</a>
        </p>
    </div>

    <div class="footer">
        <p>© {{.Year}} ProjectFlow. All rights reserved.</p>
    </div>
</body>
</html>`,
}

var parsedTemplates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(emailTemplates))
	for name, body := range emailTemplates {
		out[name] = template.Must(template.New(name).Parse(body))
	}
	return out
}()

// SMTPMailer renders the account emails and hands them to an SMTP dialer.
type SMTPMailer struct {
	cfg    SMTPConfig
	sender MessageSender
	now    func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return NewSMTPMailerWithSender(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

func NewSMTPMailerWithSender(cfg SMTPConfig, sender MessageSender) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sender: sender, now: time.Now}
}

func (m *SMTPMailer) SendEmailConfirmation(address, displayName, token string) error {
	return m.SendEmail(EmailData{
		Subject:  "Confirm your email address",
		To:       []string{address},
		Template: "confirm_email",
		Data:     m.templateData("Confirm your email address", displayName, m.link("/confirm-email", address, token)),
	})
}

func (m *SMTPMailer) SendPasswordReset(address, displayName, token string) error {
	return m.SendEmail(EmailData{
		Subject:  "Password Reset Request",
		To:       []string{address},
		Template: "password_reset",
		Data:     m.templateData("Password Reset Request", displayName, m.link("/reset-password", address, token)),
	})
}

func (m *SMTPMailer) SendWelcome(address, displayName string) error {
	return m.SendEmail(EmailData{
		Subject:  "Welcome to ProjectFlow",
		To:       []string{address},
		Template: "welcome",
		Data:     m.templateData("Welcome to ProjectFlow", displayName, m.cfg.AppURL),
	})
}

func (m *SMTPMailer) SendEmail(data EmailData) error {
	tmpl, ok := parsedTemplates[data.Template]
	if !ok {
		return fmt.Errorf("template '%s' not found", data.Template)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data.Data); err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetHeader("To", data.To...)
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body.String())

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"template": data.Template,
		"to":       data.To,
	}).Debug("Email sent")
	return nil
}

func (m *SMTPMailer) templateData(subject, name, link string) map[string]interface{} {
	return map[string]interface{}{
		"Subject": subject,
		"Name":    name,
		"Link":    link,
		"Year":    m.now().Year(),
	}
}

func (m *SMTPMailer) link(path, address, token string) string {
	q := url.Values{}
	q.Set("email", address)
	q.Set("token", token)
	return m.cfg.AppURL + path + "?" + q.Encode()
}
