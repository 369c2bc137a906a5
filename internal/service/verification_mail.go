package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrInvalidRecipient = errors.New("invalid email address")

type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Sender      string
	FrontendURL string
	AppName     string
}

// Mailer delivers verification links over SMTP.
type Mailer struct {
	cfg  MailConfig
	send func(m *gomail.Message) error
}

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.AppName == "" {
		cfg.AppName = "Account API"
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return &Mailer{
		cfg:  cfg,
		send: func(m *gomail.Message) error { return d.DialAndSend(m) },
	}
}

// VerificationLink builds the frontend URL the user opens to verify.
func VerificationLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/verify-email/" + url.PathEscape(token)
}

func verificationBody(appName, link string) string {
	return fmt.Sprintf(`<p>Welcome to %v!</p>
<p>Click <a href='%v'>here</a> to verify your email address.</p>
<p>If the button doesn't work, copy this link into your browser:<br>%v</p>
<p>This link will expire in 24 hours.</p>`, appName, link, link)
}

func (m *Mailer) message(sendTo, token string) *gomail.Message {
	msg := gomail.NewMessage()

	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", sendTo)
	msg.SetHeader("Subject", fmt.Sprintf("Verify your email to start using %v", m.cfg.AppName))
	msg.SetBody("text/html", verificationBody(m.cfg.AppName, VerificationLink(m.cfg.FrontendURL, token)))

	return msg
}

// SendVerification mails the verification link for token to sendTo. The SMTP
// client has no deadline of its own, so ctx is raced against the send.
func (m *Mailer) SendVerification(ctx context.Context, sendTo, token string) error {
	if sendTo == "" || strings.EqualFold(sendTo, m.cfg.Sender) {
		return ErrInvalidRecipient
	}

	msg := m.message(sendTo, token)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.send(msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send verification mail, %w", err)
		}

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier writes the verification link to the log instead of mailing it.
// Meant for local development only.
type LogNotifier struct {
	FrontendURL string
}

func (n LogNotifier) SendVerification(ctx context.Context, sendTo, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	zap.L().Warn("Mail driver is set to log, verification email not sent",
		zap.String("to", sendTo),
		zap.String("link", VerificationLink(n.FrontendURL, token)))

	return nil
}
