package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/logger"
)

// ============================================================
// CONFIGURATION & SERVICE
// ============================================================

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func DefaultConfig() *Config {
	return &Config{
		Host:     config.GetEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:     config.GetEnv("SMTP_PORT", "587"),
		Username: config.GetEnv("SMTP_USERNAME", ""),
		Password: config.GetEnv("SMTP_PASSWORD", ""),
		From:     config.GetEnv("SMTP_FROM", "noreply@digioh.id"),
		FromName: config.GetEnv("SMTP_FROM_NAME", "Event Registration"),
	}
}

// Sender delivers a single message
type Sender interface {
	Send(msg EmailMessage) error
}

type EmailService struct {
	config  *Config
	devMode bool
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService returns a service. Without SMTP credentials it runs in dev
// mode: messages are logged and dropped.
func NewEmailService(cfg *Config) *EmailService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &EmailService{
		config:  cfg,
		devMode: cfg.Username == "" || cfg.Password == "",
		send:    smtp.SendMail,
	}
}

// DevMode reports whether sending is disabled
func (s *EmailService) DevMode() bool {
	return s.devMode
}

// ============================================================
// DATA STRUCTURES
// ============================================================

type EmailMessage struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Attachment struct {
	Filename string
	Data     []byte
	MimeType string
}

// InvitationEmailData is one broadcast invitation with the guest's QR code attached
type InvitationEmailData struct {
	To         string
	Subject    string
	GuestName  string
	Paragraphs []string
	QRCodePng  []byte
	QRFilename string
}

// ============================================================
// SENDING ENGINE
// ============================================================

// BuildMIME renders msg as a multipart/mixed message
func (s *EmailService) BuildMIME(msg EmailMessage, boundary string) []byte {
	var body bytes.Buffer
	subject := mime.QEncoding.Encode("UTF-8", msg.Subject)
	body.WriteString(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/mixed; boundary=%s\r\n\r\n",
		mime.QEncoding.Encode("UTF-8", s.config.FromName), s.config.From, strings.Join(msg.To, ", "), subject, boundary))
	body.WriteString(fmt.Sprintf("--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTMLBody))
	for _, att := range msg.Attachments {
		body.WriteString(fmt.Sprintf("--%s\r\nContent-Type: %s; name=\"%s\"\r\nContent-Transfer-Encoding: base64\r\nContent-Disposition: attachment; filename=\"%s\"\r\n\r\n%s\r\n",
			boundary, att.MimeType, att.Filename, att.Filename, base64.StdEncoding.EncodeToString(att.Data)))
	}
	body.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return body.Bytes()
}

func (s *EmailService) Send(msg EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if s.devMode {
		logger.WithFields(map[string]interface{}{
			"to":          strings.Join(msg.To, ","),
			"subject":     msg.Subject,
			"attachments": len(msg.Attachments),
		}).Info("SMTP not configured, email not sent")
		return nil
	}
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	boundary := fmt.Sprintf("boundary_%d", time.Now().UnixNano())
	return s.send(addr, auth, s.config.From, msg.To, s.BuildMIME(msg, boundary))
}

// ============================================================
// TEMPLATE BUILDERS
// ============================================================

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
{{if .GuestName}}<p>Dear {{.GuestName}},</p>{{end}}
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p>Your QR code is attached. Please show it at the registration desk.</p>
</body></html>`))

// BuildInvitationHTML renders the broadcast body; paragraphs are HTML-escaped
func BuildInvitationHTML(data InvitationEmailData) (string, error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *EmailService) SendInvitationEmail(data InvitationEmailData) error {
	html, err := BuildInvitationHTML(data)
	if err != nil {
		return fmt.Errorf("failed to render invitation: %w", err)
	}
	msg := EmailMessage{To: []string{data.To}, Subject: data.Subject, HTMLBody: html}
	if len(data.QRCodePng) > 0 {
		filename := data.QRFilename
		if filename == "" {
			filename = "qrcode.png"
		}
		msg.Attachments = []Attachment{{Filename: filename, Data: data.QRCodePng, MimeType: "image/png"}}
	}
	return s.Send(msg)
}
