package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// smtpSession is the part of *smtp.Client used once the connection is
// greeted and secured.
type smtpSession interface {
	Auth(a sasl.Client) error
	SendMail(from string, to []string, r io.Reader) error
	Quit() error
	Close() error
}

type dialFunc func(ctx context.Context) (smtpSession, error)

// SMTPTransport delivers messages through an SMTP server. Port 465 uses
// implicit TLS; other ports require STARTTLS unless the host is loopback.
type SMTPTransport struct {
	cfg  SMTPConfig
	dial dialFunc
	now  func() time.Time
}

// NewSMTPTransport creates an SMTP transport. A zero Timeout defaults to
// 30 seconds.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FromName == "" {
		cfg.FromName = "DOZO"
	}
	t := &SMTPTransport{cfg: cfg, now: time.Now}
	t.dial = t.connect
	return t
}

// Compose encodes msg as a multipart/alternative MIME message with a
// plain-text and an HTML part.
func (t *SMTPTransport) Compose(msg Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(t.now())
	h.SetAddressList("From", []*mail.Address{{Name: t.cfg.FromName, Address: t.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline writer: %w", err)
	}
	if err := writePart(iw, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if err := writePart(iw, "text/html", msg.HTML); err != nil {
		return nil, err
	}
	if err := iw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

// Deliver implements Transport. ctx and the configured timeout bound the
// connection setup. After that the exchange is never abandoned: each
// command is bounded by the timeout on the connection itself, so a nil
// error means the server accepted the message and a non-nil error means
// the exchange really ended.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	raw, err := t.Compose(msg)
	if err != nil {
		return err
	}

	c, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp connect failed: %w", err)
	}
	defer c.Close()

	if t.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := c.SendMail(t.cfg.From, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	// The message is accepted once SendMail returns; a failed QUIT does
	// not undo that.
	_ = c.Quit()
	return nil
}

// connect dials the server and completes the greeting, EHLO and TLS
// negotiation. Closing the connection is the only way to interrupt
// go-smtp mid-command, which is safe here because nothing has been
// submitted yet.
func (t *SMTPTransport) connect(ctx context.Context) (smtpSession, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: t.cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}

	var conn net.Conn
	var err error
	if t.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	c, err := t.handshake(conn, tlsConfig)
	if !stop() {
		if c != nil {
			_ = c.Close()
		}
		return nil, fmt.Errorf("smtp handshake interrupted: %w", context.Cause(ctx))
	}
	if err != nil {
		return nil, err
	}
	c.CommandTimeout = t.cfg.Timeout
	c.SubmissionTimeout = t.cfg.Timeout
	return c, nil
}

// handshake reads the greeting and says EHLO. Ports other than 465
// require STARTTLS, except for a relay on the loopback interface.
func (t *SMTPTransport) handshake(conn net.Conn, tlsConfig *tls.Config) (*smtp.Client, error) {
	var c *smtp.Client
	if t.cfg.Port == 465 || isLoopback(t.cfg.Host) {
		c = smtp.NewClient(conn)
		if err := c.Hello("localhost"); err != nil {
			_ = c.Close()
			return nil, err
		}
	} else {
		var err error
		if c, err = smtp.NewClientStartTLS(conn, tlsConfig); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if t.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			_ = c.Close()
			return nil, errors.New("server does not support AUTH")
		}
	}
	return c, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LogTransport logs messages instead of sending them. It is used when no
// mail host is configured.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport.
// If logger is nil, a default logger will be used.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger.With(slog.String("component", "log_transport"))}
}

// Deliver implements Transport.
func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	t.logger.InfoContext(ctx, "email not sent, no mail host configured",
		slog.String("subject", msg.Subject),
		slog.Int("text_bytes", len(msg.Text)),
		slog.Int("html_bytes", len(msg.HTML)))
	return nil
}
