package emit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// SMTPConfig names the relay used to send processing notifications.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Notification carries the event/processing metadata and optional
// attachment for one stage's completion email.
type Notification struct {
	Subject        string
	Body           string
	AttachmentPath string // empty = no attachment
}

// SendNotification composes a MIME multipart message (plain-text body plus
// an optional attachment, e.g. the intensity image) and sends it through
// cfg via net/smtp.
func SendNotification(cfg SMTPConfig, n Notification) error {
	msg, err := buildMessage(cfg, n)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, cfg.To, msg); err != nil {
		return &perrors.ConfigError{Op: "send notification email", Err: err}
	}
	return nil
}

func buildMessage(cfg SMTPConfig, n Notification) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(cfg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", n.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, &perrors.ConfigError{Op: "create email text part", Err: err}
	}
	if _, err := textPart.Write([]byte(n.Body)); err != nil {
		return nil, &perrors.ConfigError{Op: "write email text part", Err: err}
	}

	if n.AttachmentPath != "" {
		if err := attachFile(writer, n.AttachmentPath); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, &perrors.ConfigError{Op: "close email writer", Err: err}
	}
	return buf.Bytes(), nil
}

func attachFile(writer *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &perrors.ConfigError{Op: "read attachment " + path, Err: err}
	}

	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/octet-stream"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(path))},
	})
	if err != nil {
		return &perrors.ConfigError{Op: "create email attachment part", Err: err}
	}

	encoder := base64.NewEncoder(base64.StdEncoding, part)
	if _, err := encoder.Write(data); err != nil {
		return &perrors.ConfigError{Op: "encode attachment", Err: err}
	}
	return encoder.Close()
}
