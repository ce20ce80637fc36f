package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// ErrUnknownTask is returned for a task type the worker does not schedule.
var ErrUnknownTask = errors.New("jobs: unknown task type")

// MailSender delivers one message.
type MailSender interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr     string
	From     string
	Username string
	Password string
}

// Send implements MailSender.
func (s SMTPSender) Send(ctx context.Context, msg SendEmailPayload) error {
	var auth smtp.Auth
	if s.Username != "" {
		host, _, err := net.SplitHostPort(s.Addr)
		if err != nil {
			return fmt.Errorf("smtp addr: %w", err)
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return smtp.SendMail(s.Addr, auth, s.From, []string{msg.To}, []byte(b.String()))
}

// LogSender only logs messages. Used when no relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements MailSender.
func (s LogSender) Send(ctx context.Context, msg SendEmailPayload) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail not sent, no SMTP relay configured", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// MailJob handles TaskTypeSendEmail.
type MailJob struct {
	Sender MailSender
	Logger *slog.Logger
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode mail payload: %w", asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("mail without recipient: %w", asynq.SkipRetry)
	}
	if err := j.Sender.Send(ctx, payload); err != nil {
		j.Logger.Warn("send mail", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	return nil
}
