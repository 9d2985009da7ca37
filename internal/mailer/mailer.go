// Package mailer sends attendance notification emails over SMTP.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Message is one outbound notification email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers notification emails. The batch notifier depends on this
// interface; tests substitute an in-memory implementation.
type Sender interface {
	Send(msg Message) error
}

// SMTP sends mail through a gomail dialer.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP configures a sender against the given SMTP relay.
func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send delivers one plain-text email.
func (s *SMTP) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return s.dialer.DialAndSend(m)
}

// Console logs mail instead of sending it; used when SMTP is not configured.
type Console struct {
	Logf func(format string, args ...any)
}

// Send prints the message through the configured log function.
func (c *Console) Send(msg Message) error {
	if c.Logf != nil {
		c.Logf("mail to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Body)
	}
	return nil
}

// CredentialsNotice is the mail the admin console sends a user when their
// account is created or their password is reset. The plain password goes
// out exactly once; it is never stored.
func CredentialsNotice(to, username, password string) Message {
	body := fmt.Sprintf(`Hello,

Your account has been created.
Username: %s
Password: %s

Please change your password after logging in.

Regards,
Attendance System`, username, password)
	return Message{To: to, Subject: "Your Account Credentials", Body: body}
}
