package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"

	"dqpipe/internal/config"
	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// EmailTransport sends the report over SMTP with the spreadsheet
// attached.
type EmailTransport struct {
	cfg config.SMTPConfig
}

// NewEmailTransport creates an SMTP transport from configuration.
func NewEmailTransport(cfg config.SMTPConfig) *EmailTransport {
	return &EmailTransport{cfg: cfg}
}

// Name implements Transport.
func (t *EmailTransport) Name() string {
	return "email"
}

// Send builds a MIME message (plain-text body plus optional
// attachment) and delivers it. The context deadline bounds the whole
// attempt, including the TCP dial.
func (t *EmailTransport) Send(ctx context.Context, msg domain.Message) error {
	if msg.Recipient == "" {
		return errors.New(errors.CodeNotifyExhausted, "no recipient configured")
	}

	payload, err := t.buildMessage(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	// smtp.SendMail has no context support; run it in a goroutine and
	// abandon it when the attempt deadline expires.
	done := make(chan error, 1)
	go func() {
		var auth smtp.Auth
		if t.cfg.Username != "" {
			auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		}
		done <- smtp.SendMail(addr, auth, t.cfg.Sender, []string{msg.Recipient}, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(errors.CodeNotifyTransient, "smtp delivery failed", err)
		}
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.CodeNotifyTransient, "smtp delivery timed out", ctx.Err())
	}
}

// buildMessage renders the RFC 2045 multipart payload.
func (t *EmailTransport) buildMessage(msg domain.Message) ([]byte, error) {
	const boundary = "dqpipe-report-boundary"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", t.cfg.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	if msg.Attachment != "" {
		data, err := os.ReadFile(msg.Attachment)
		if err != nil {
			return nil, errors.Wrap(errors.CodeReport, "attachment not readable", err)
		}
		if len(data) == 0 {
			return nil, errors.New(errors.CodeReport, "attachment is empty")
		}

		name := filepath.Base(msg.Attachment)
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		buf.WriteString("Content-Type: application/octet-stream\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)

		encoded := base64.StdEncoding.EncodeToString(data)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}
