package utils

import (
	"fmt"
	"html"
	"net/smtp"
	"sort"
	"strings"
)

const companyName = "CarBid Rentals"

// Common header template for all emails
const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #1f6feb; margin: 0;">CarBid</h2>
		</div>
`

// Common footer template for all emails
const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
			<p>© 2026 CarBid Rentals. All rights reserved.</p>
		</div>
	</div>
</body>
</html>
`

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML notification emails over SMTP.
type Mailer struct {
	From     string
	Password string
	Host     string
	Port     string
	BaseURL  string

	send sendMailFunc
}

func NewMailer(from, password, host, port, baseURL string) *Mailer {
	return &Mailer{
		From:     from,
		Password: password,
		Host:     host,
		Port:     port,
		BaseURL:  baseURL,
		send:     smtp.SendMail,
	}
}

func (m *Mailer) Configured() bool {
	return m.From != "" && m.Password != "" && m.Host != "" && m.Port != ""
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if !m.Configured() {
		return fmt.Errorf("email configuration not set")
	}

	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", companyName, m.From),
		"To":           strings.Join(to, ","),
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
		"X-Mailer":     "CarBid-Mailer",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var message strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&message, "%s: %s\r\n", k, headers[k])
	}
	message.WriteString("\r\n" + body)

	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)
	return m.send(m.Host+":"+m.Port, auth, m.From, to, []byte(message.String()))
}

// RenderEmail wraps a title and plain-text paragraphs in the branded layout.
func (m *Mailer) RenderEmail(title string, paragraphs []string) string {
	var body strings.Builder
	body.WriteString(emailHeader)
	body.WriteString(`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">` + html.EscapeString(title) + `</h1>
					<p>Hello,</p>
`)
	for _, p := range paragraphs {
		body.WriteString("					<p>" + html.EscapeString(p) + "</p>\n")
	}
	if m.BaseURL != "" {
		body.WriteString(`					<div style="text-align: center; margin: 30px 0;">
						<a href="` + m.BaseURL + `/dashboard" style="background-color: #1f6feb; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">Open CarBid</a>
					</div>
`)
	}
	body.WriteString(`					<p>Best regards,<br>The CarBid Team</p>
				</div>`)
	body.WriteString(emailFooter)
	return body.String()
}
