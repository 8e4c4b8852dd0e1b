// Package email sends stakeholder notifications via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured. When not configured the
// app silently skips notifications.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email with a plain text fallback part
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-scopilot"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// ApprovalRequestData feeds the approval request template sent to a
// stakeholder whose sign-off gates a phase.
type ApprovalRequestData struct {
	AppName         string
	StakeholderName string
	ProjectName     string
	PhaseLabel      string
	RequestedBy     string
}

type PhaseValidatedData struct {
	AppName     string
	ProjectName string
	PhaseLabel  string
	ValidatedBy string
	Comment     string
}

// SendApprovalRequest notifies a stakeholder that their approval is expected
// on a phase of the given project.
func (s *Service) SendApprovalRequest(to string, data ApprovalRequestData) error {
	if data.AppName == "" {
		data.AppName = "Scopilot"
	}
	subject := fmt.Sprintf("Validation attendue — %s (%s)", data.ProjectName, data.PhaseLabel)
	html, err := renderTemplate(approvalRequestTemplate, data)
	if err != nil {
		return fmt.Errorf("render approval request template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, subject, html)
}

// SendPhaseValidated notifies stakeholders that a phase was validated.
func (s *Service) SendPhaseValidated(to []string, data PhaseValidatedData) error {
	if data.AppName == "" {
		data.AppName = "Scopilot"
	}
	subject := fmt.Sprintf("Phase %s validée — %s", data.PhaseLabel, data.ProjectName)
	html, err := renderTemplate(phaseValidatedTemplate, data)
	if err != nil {
		return fmt.Errorf("render phase validated template: %w", err)
	}
	return s.SendHTMLEmail(to, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const approvalRequestTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Validation attendue</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .phase { display: inline-block; padding: 4px 12px; background: #eef4ff; color: #0066cc; border-radius: 4px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Bonjour {{.StakeholderName}},</h2>

    <p>{{.RequestedBy}} sollicite votre validation sur le projet <strong>{{.ProjectName}}</strong>.</p>

    <p>Phase concernée : <span class="phase">{{.PhaseLabel}}</span></p>

    <p>Votre approbation est requise pour que cette phase puisse être validée.</p>

    <div class="footer">
        <p>Cet email a été envoyé automatiquement par {{.AppName}}.</p>
    </div>
</body>
</html>`

const phaseValidatedTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Phase validée</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .phase { display: inline-block; padding: 4px 12px; background: #e8f7ee; color: #1a7f45; border-radius: 4px; }
        .comment { background: #f7f7f7; padding: 12px; border-radius: 4px; margin: 20px 0; font-style: italic; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Phase validée</h2>

    <p>La phase <span class="phase">{{.PhaseLabel}}</span> du projet <strong>{{.ProjectName}}</strong> a été validée par {{.ValidatedBy}}.</p>

    {{if .Comment}}<div class="comment">{{.Comment}}</div>{{end}}

    <div class="footer">
        <p>Cet email a été envoyé automatiquement par {{.AppName}}.</p>
    </div>
</body>
</html>`
