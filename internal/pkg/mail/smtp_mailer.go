package mail

import (
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

// SendMail delivers a single HTML mail via the configured SMTP relay.
// Without SMTP_HOST the message is only logged; magic links would otherwise
// be unreachable in a local setup.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}

	if host == "" {
		if env.IsDev() {
			log.Infof("[Mail] SMTP_HOST not set, printing mail instead\nTo: %s\nSubject: %s\n%s", to, subject, body)
			return nil
		}
		return fmt.Errorf("SMTP_HOST is not configured")
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

	if err := smtp.SendMail(addr, auth, sender, []string{to}, msg); err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Debugf("[Mail] Sent %q to %s via %s", subject, to, addr)
	return nil
}
