// Package smtp доставляет квитанции WingoBoss Premium по SMTP со STARTTLS.
package smtp

import "io"

// Client сессия SMTP, в которой отправляется одна квитанция об активации.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// ReceiptTransport открывает сессии для notifier. GetSMTPUser служит
// адресом отправителя в поле From квитанции.
type ReceiptTransport interface {
	Connect() (Client, error)
	GetSMTPUser() string
}

var _ ReceiptTransport = (*Transport)(nil)
