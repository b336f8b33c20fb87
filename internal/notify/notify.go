// Package notify delivers verification codes to users over email and SMS.
package notify

// Mailer sends a plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMSSender sends a short text message to a phone number.
type SMSSender interface {
	Send(phone, body string) error
}
