// Package notifier запускает потребителя очереди активаций и рассылает
// письма-квитанции.
package notifier

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/wingoboss/wingoboss-api/internal/config"
	"github.com/wingoboss/wingoboss-api/internal/lib/rabbitmq"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/lib/smtp"
	senderservice "github.com/wingoboss/wingoboss-api/internal/services/sender"
)

// App потребитель уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New подключается к брокеру и объявляет очереди.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	if !transport.Configured() {
		logger.Warn("smtp is not configured, receipts will be dropped")
	}

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewSenderService(transport, logger),
		logger:        logger,
	}, nil
}

// Run обрабатывает сообщения до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueActivated, a.senderService.SendActivationReceipt, a.logger)
	if err != nil {
		a.logger.Error("failed to start activation consumer", slog.String("queue", rabbitmq.QueueActivated), sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("notifier shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
