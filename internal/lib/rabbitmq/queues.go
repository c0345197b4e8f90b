package rabbitmq

// Очередь уведомлений об активации подписки.
const (
	QueueActivated      = "notifications.activated"
	RoutingKeyActivated = "activated"
)

// QueueConfig очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues возвращает очереди, которые нужны уведомителю.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueActivated, RoutingKey: RoutingKeyActivated},
	}
}
