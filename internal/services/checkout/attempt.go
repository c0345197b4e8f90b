package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/metrics"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// State состояние попытки оплаты.
type State string

// Состояния попытки.
const (
	StateIdle            State = "idle"
	StateAwaitingAuth    State = "awaiting_auth"
	StateCreatingOrder   State = "creating_order"
	StateAwaitingGateway State = "awaiting_gateway"
	StateSuccess         State = "success"
	StateFailure         State = "failure"
)

// ErrIllegalTransition переход не разрешён из текущего состояния.
var ErrIllegalTransition = errors.New("illegal checkout transition")

var transitions = map[State][]State{
	StateIdle:            {StateAwaitingAuth, StateCreatingOrder},
	StateAwaitingAuth:    {StateCreatingOrder, StateFailure},
	StateCreatingOrder:   {StateAwaitingGateway, StateFailure},
	StateAwaitingGateway: {StateSuccess, StateFailure},
}

// Terminal сообщает, что из состояния нет переходов.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// Attempt одна попытка оплаты вокруг заказа.
type Attempt struct {
	OrderID          string      `json:"orderId"`
	UID              string      `json:"uid"`
	Email            string      `json:"email"`
	DisplayName      string      `json:"displayName"`
	Plan             models.Plan `json:"plan"`
	Amount           float64     `json:"amount"`
	Currency         string      `json:"currency"`
	PaymentSessionID string      `json:"paymentSessionId,omitempty"`
	CFOrderID        string      `json:"cfOrderId,omitempty"`
	State            State       `json:"state"`
	GatewayStatus    string      `json:"gatewayStatus,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	ExpiresAt        *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Transition переводит попытку в состояние to, если переход разрешён.
func (a *Attempt) Transition(to State) error {
	for _, allowed := range transitions[a.State] {
		if allowed == to {
			a.State = to
			if to.Terminal() {
				metrics.CheckoutOutcomes.WithLabelValues(string(to)).Inc()
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.State, to)
}
