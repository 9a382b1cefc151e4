/*-------------------------------------------------------------------------
 *
 * email.go
 *    Email notification channel
 *
 * Provides SMTP-based email delivery for approval events.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/notifications/email.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

/* EmailService provides email notification capabilities */
type EmailService struct {
	smtpHost     string
	smtpPort     int
	smtpUser     string
	smtpPassword string
	smtpFrom     string
	enabled      bool
}

/* NewEmailService creates a new email service. The service stays disabled
 * when no SMTP host is configured. */
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, smtpFrom string) *EmailService {
	return &EmailService{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		smtpFrom:     smtpFrom,
		enabled:      smtpHost != "" && smtpPort > 0,
	}
}

/* SendEmail sends an email notification */
func (e *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if !e.enabled {
		return fmt.Errorf("email service not configured")
	}

	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}

	msg := fmt.Sprintf("From: %s\r\n", e.smtpFrom)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "\r\n"
	msg += body

	auth := smtp.PlainAuth("", e.smtpUser, e.smtpPassword, e.smtpHost)

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)
	err := smtp.SendMail(addr, auth, e.smtpFrom, []string{to}, []byte(msg))
	if err != nil {
		return fmt.Errorf("email send failed: to='%s', subject='%s', error=%w", to, subject, err)
	}

	return nil
}

/* IsEnabled returns whether email service is enabled */
func (e *EmailService) IsEnabled() bool {
	return e.enabled
}
