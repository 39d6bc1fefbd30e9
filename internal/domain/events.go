package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEvent is the payload published to the payment_events exchange when a
// payment transitions into a terminal state. Downstream consumers (reporting,
// case management) react without the payment-service knowing about them.
type PaymentEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	CaseID        uuid.UUID       `json:"case_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	LawyerID      uuid.UUID       `json:"lawyer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Timestamp     time.Time       `json:"timestamp"`
}
