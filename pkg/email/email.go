package email

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	texttemplate "text/template"
	"time"

	"go-panel-backend/config"
)

var ErrNotConfigured = errors.New("smtp not configured")

// EmailService handles sending emails via SMTP
type EmailService struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now       func() time.Time
}

// PasswordResetData holds the data for password reset emails
type PasswordResetData struct {
	Email     string
	ResetLink string
	ValidFor  string
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromEmail: cfg.SMTPFromEmail,
		send:      smtp.SendMail,
		now:       time.Now,
	}
}

var (
	resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(`<!DOCTYPE html>
<html lang="es">
<body style="font-family: Arial, sans-serif; color: #222; max-width: 560px; margin: 0 auto;">
  <h2>Restablecer contraseña</h2>
  <p>Recibimos una solicitud para restablecer la contraseña de {{.Email}}.</p>
  <p><a href="{{.ResetLink}}" style="background: #0f62fe; color: #fff; padding: 10px 18px; border-radius: 4px; text-decoration: none;">Elegir una nueva contraseña</a></p>
  <p>El enlace es válido durante {{.ValidFor}}. Si no solicitaste este cambio, ignora este correo.</p>
</body>
</html>`))

	resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(`Recibimos una solicitud para restablecer la contraseña de {{.Email}}.

Abre este enlace para elegir una nueva contraseña:
{{.ResetLink}}

El enlace es válido durante {{.ValidFor}}. Si no solicitaste este cambio, ignora este correo.
`))
)

// SendPasswordReset mails the reset link to the account owner.
func (s *EmailService) SendPasswordReset(data PasswordResetData) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	msg, err := s.buildPasswordReset(data)
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.send(addr, auth, s.fromEmail, []string{data.Email}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailService) buildPasswordReset(data PasswordResetData) ([]byte, error) {
	var text, html bytes.Buffer
	if err := resetText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := resetHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	var msg bytes.Buffer
	parts := multipart.NewWriter(&msg)
	fmt.Fprintf(&msg, "From: %s\r\nTo: %s\r\n", s.fromEmail, data.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Restablece tu contraseña"))
	fmt.Fprintf(&msg, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n", parts.Boundary())

	for _, body := range []struct {
		contentType string
		content     []byte
	}{
		{"text/plain; charset=UTF-8", text.Bytes()},
		{"text/html; charset=UTF-8", html.Bytes()},
	} {
		w, err := parts.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {body.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body.content); err != nil {
			return nil, err
		}
	}
	if err := parts.Close(); err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}

// IsConfigured checks if the email service has valid SMTP configuration
func (s *EmailService) IsConfigured() bool {
	return s.host != "" && s.username != "" && s.password != ""
}
