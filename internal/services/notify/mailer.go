package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
)

var _ interfaces.Notifier = (*Mailer)(nil)

// deliverFunc hands a rendered message to an SMTP server.
type deliverFunc func(ctx context.Context, msg []byte) error

// Mailer sends the report as a multipart/alternative mail with a Markdown-rendered HTML part.
type Mailer struct {
	config  common.MailConfig
	md      goldmark.Markdown
	deliver deliverFunc
	now     func() time.Time
	logger  arbor.ILogger
}

// NewMailer creates a mail notifier.
func NewMailer(config common.MailConfig, logger arbor.ILogger) *Mailer {
	m := &Mailer{
		config: config,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		now:    time.Now,
		logger: logger,
	}
	m.deliver = m.smtpDeliver
	return m
}

// Name identifies the notifier.
func (m *Mailer) Name() string {
	return "mail"
}

// Send renders and delivers the message to every configured recipient.
func (m *Mailer) Send(ctx context.Context, subject, message string) error {
	if len(m.config.To) == 0 {
		return fmt.Errorf("no mail recipients configured")
	}

	msg, err := m.compose(subject, message)
	if err != nil {
		return err
	}

	if err := m.deliver(ctx, msg); err != nil {
		return err
	}

	m.logger.Debug().Strs("to", m.config.To).Int("bytes", len(msg)).Msg("Mail sent")
	return nil
}

// compose builds the MIME message. go-message applies header and quoted-printable
// encoding, which keeps long Korean lines within RFC 5322 limits.
func (m *Mailer) compose(subject, message string) ([]byte, error) {
	var htmlBody bytes.Buffer
	if err := m.md.Convert([]byte(message), &htmlBody); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	to := make([]*mail.Address, 0, len(m.config.To))
	for _, addr := range m.config.To {
		to = append(to, &mail.Address{Address: addr})
	}

	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Name: m.config.FromName, Address: m.config.From}})
	h.SetAddressList("To", to)
	h.SetSubject(subject)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline writer: %w", err)
	}

	parts := []struct {
		contentType string
		body        []byte
	}{
		{"text/plain", []byte(message)},
		{"text/html", htmlBody.Bytes()},
	}
	for _, part := range parts {
		var ph mail.InlineHeader
		ph.SetContentType(part.contentType, map[string]string{"charset": "utf-8"})
		w, err := iw.CreatePart(ph)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s part: %w", part.contentType, err)
		}
		if _, err := w.Write(part.body); err != nil {
			return nil, fmt.Errorf("failed to write %s part: %w", part.contentType, err)
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	if err := iw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Mailer) smtpDeliver(ctx context.Context, msg []byte) error {
	port := m.config.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(port))

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	done := make(chan error, 1)
	go func() {
		if m.config.UseTLS {
			done <- m.sendWithTLS(addr, auth, msg)
			return
		}
		done <- smtp.SendMail(addr, auth, m.config.From, m.config.To, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("mail delivery: %w", ctx.Err())
	}
}

// sendWithTLS tries implicit TLS (port 465 style) and falls back to STARTTLS.
func (m *Mailer) sendWithTLS(addr string, auth smtp.Auth, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.config.Host})
	if err != nil {
		return m.sendWithSTARTTLS(addr, auth, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return m.transmit(client, auth, msg)
}

func (m *Mailer) sendWithSTARTTLS(addr string, auth smtp.Auth, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return m.transmit(client, auth, msg)
}

func (m *Mailer) transmit(client *smtp.Client, auth smtp.Auth, msg []byte) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, to := range m.config.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set mail recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
