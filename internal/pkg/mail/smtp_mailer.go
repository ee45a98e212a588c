package mail

import (
	"fmt"
	"html"
	"net/smtp"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
)

// Configured reports whether an SMTP host is set.
func Configured() bool {
	return env.GetEnv("SMTP_HOST", "") != ""
}

// SendMail sends an HTML mail via SMTP. Without SMTP_HOST the mail is only logged.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if !Configured() {
		fiberlog.Infof("SMTP not configured, mail to %s not sent: %s\n%s", to, subject, body)
		return nil
	}

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", host)
		fiberlog.Warnf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		fiberlog.Errorf("SMTP send error: %v", err)
	} else {
		fiberlog.Infof("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendVerificationMail sends the account activation link.
func SendVerificationMail(to, name, link string) error {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>please confirm your email address:</p><p><a href=\"%s\">%s</a></p><p>The link is valid for 48 hours.</p>",
		html.EscapeString(name), html.EscapeString(link), html.EscapeString(link),
	)
	return SendMail(to, "Confirm your SaaSFox account", body)
}
