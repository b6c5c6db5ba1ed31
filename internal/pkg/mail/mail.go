package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultResendEndpoint = "https://api.resend.com/emails"
	defaultSMTPPort       = 587
	defaultSMTPTimeout    = 30 * time.Second
)

var ErrNoRecipients = errors.New("mail: no recipients")

// Config holds mail provider settings.
type Config struct {
	Enable    bool   `json:"enable"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	From      string `json:"from"`
	ReplyTo   string `json:"reply_to"`
	UseResend bool   `json:"use_resend"`
	ResendKey string `json:"resend_key"`
	// ResendEndpoint overrides the Resend API URL.
	ResendEndpoint string `json:"-"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages through Resend when a key is set, SMTP otherwise.
type Sender struct {
	cfg    Config
	client *http.Client
	// smtpTimeout bounds one whole SMTP session.
	smtpTimeout time.Duration
}

func New(cfg Config) *Sender {
	if cfg.ResendEndpoint == "" {
		cfg.ResendEndpoint = defaultResendEndpoint
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	return &Sender{
		cfg:         cfg,
		client:      &http.Client{Timeout: 15 * time.Second},
		smtpTimeout: defaultSMTPTimeout,
	}
}

// Enabled reports whether Send actually delivers mail.
func (s *Sender) Enabled() bool { return s.cfg.Enable }

// Send delivers msg. It is a no-op when mail is disabled.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(ctx, msg)
	}
	return s.sendSMTP(ctx, msg)
}

func (s *Sender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.User
}

// buildMIME renders the RFC 5322 message sent over SMTP.
func (s *Sender) buildMIME(msg Message) []byte {
	headers := [][2]string{
		{"MIME-Version", "1.0"},
		{"From", s.from()},
		{"To", strings.Join(msg.To, ", ")},
		{"Subject", msg.Subject},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	if s.cfg.ReplyTo != "" {
		headers = append(headers, [2]string{"Reply-To", s.cfg.ReplyTo})
	}

	var buf bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}

// sendSMTP sends via net/smtp. STARTTLS is used when the server offers it.
// The session shares one deadline: the earlier of ctx and smtpTimeout.
func (s *Sender) sendSMTP(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		return errors.New("mail: smtp host is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.smtpTimeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("smtp deadline: %w", err)
	}

	if err := s.smtpSession(conn, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *Sender) smtpSession(conn net.Conn, msg Message) error {
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if s.cfg.User != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(s.from()); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err := c.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.buildMIME(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(resendRequest{
		From:    s.from(),
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: s.cfg.ReplyTo,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ResendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	var errResp struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int { return time.Now().Year() },
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
