// Package sender отправляет письма-квитанции об оплаченной подписке.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/lib/smtp"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// SenderService формирует и отправляет письма.
type SenderService struct {
	transport smtp.ReceiptTransport
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.ReceiptTransport, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendActivationReceipt разбирает сообщение из очереди активаций и отправляет квитанцию.
func (s *SenderService) SendActivationReceipt(body []byte) error {
	const op = "sender.SendActivationReceipt"
	log := s.log.With(slog.String("op", op))

	var message models.ActivationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if message.Email == "" {
		log.Warn("activation without email, receipt skipped", slog.String("uid", message.UID))
		return nil
	}

	subject := "WingoBoss Premium activated"
	return s.sendEmail([]string{message.Email}, subject, receiptText(message))
}

func receiptText(m models.ActivationMessage) string {
	name := m.DisplayName
	if name == "" {
		name = m.Email
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello, %s!\n\n", name)
	fmt.Fprintf(&b, "Your %s WingoBoss Premium subscription is active.\n\n", m.Plan)
	fmt.Fprintf(&b, "Order: %s\n", m.OrderID)
	fmt.Fprintf(&b, "Amount: %.2f %s\n", m.Amount, m.Currency)
	if !m.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "Valid until: %s\n", m.ExpiresAt.UTC().Format(time.RFC1123))
	}
	b.WriteString("\nThank you for your purchase.")
	return b.String()
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	const op = "sender.sendEmail"
	log := s.log.With(slog.String("op", op))

	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = wc.Close(); err != nil {
		log.Error("failed to close Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
