package auth

import (
	"context"
	"log"
)

// Mailer is the external email-dispatch collaborator. Only security
// notifications originate in this module.
type Mailer interface {
	SendSecurityAlert(ctx context.Context, email, message string) error
}

type DevConsoleMailer struct {
	enabled bool
}

func NewDevConsoleMailer(enabled bool) *DevConsoleMailer {
	return &DevConsoleMailer{enabled: enabled}
}

func (m *DevConsoleMailer) SendSecurityAlert(_ context.Context, email, message string) error {
	if m.enabled {
		log.Printf("[DEV-EMAIL] security alert email=%s message=%s", email, message)
	}
	return nil
}
