package mail

import (
	"fmt"
	"html"
	"time"
)

// SendMagicLink mails the one-time login link. The link already carries the
// signed token; the TTL is only repeated here for the recipient.
func SendMagicLink(to, name, link string, ttl time.Duration) error {
	subject := "Your login link"
	body := fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Click the link below to sign in to your membership account:</p>
		<p><a href="%s">Sign in</a></p>
		<p>The link is valid for %d minutes and can be used once. If you did not request it, you can ignore this email.</p>
	`, html.EscapeString(name), link, int(ttl.Minutes()))
	return SendMail(to, subject, body)
}

// SendWelcome mails the post-registration greeting with the setup link.
func SendWelcome(to, name, setupLink string) error {
	subject := "Welcome to the alumni association"
	body := fmt.Sprintf(`
		<h2>Welcome %s!</h2>
		<p>Your account has been created. Complete your membership setup here:</p>
		<p><a href="%s">Start setup</a></p>
	`, html.EscapeString(name), setupLink)
	return SendMail(to, subject, body)
}

// SendEmailChangeConfirmation mails the confirmation link to the NEW address.
func SendEmailChangeConfirmation(to, name, link string) error {
	subject := "Confirm your new email address"
	body := fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Please confirm that this is your new email address:</p>
		<p><a href="%s">Confirm email change</a></p>
		<p>The link is valid for 24 hours. If you did not request this change, please contact support.</p>
	`, html.EscapeString(name), link)
	return SendMail(to, subject, body)
}
