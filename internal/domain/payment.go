/**
 * @description
 * This file defines the core domain models for the payment-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external provider
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are `decimal.Decimal` because Paychangu reports them as decimal MWK
 *   strings and the payments table stores NUMERIC.
 */

package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the canonical settlement state of a case payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentMethodPaychangu is the fixed method label stamped on payments
// reconciled from the Paychangu checkout.
const PaymentMethodPaychangu = "Paychangu"

// Case is the read-only view of a legal case that the payment-service needs:
// who pays, who gets paid, and what the payment is for. The row itself is
// owned by the case-management side of the platform.
type Case struct {
	ID       uuid.UUID `json:"id"`
	ClientID uuid.UUID `json:"client_id"`
	LawyerID uuid.UUID `json:"lawyer_id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"` // 'OPEN', 'IN_PROGRESS', 'CLOSED'
}

// Payment is the single financial-settlement record for one case.
// The `case_id` column carries a unique constraint, which is what makes
// racing create attempts from the two provider channels converge on one row.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	CaseID        uuid.UUID       `json:"case_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transaction_id"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Notification is a one-way in-app message to a user. DedupeKey makes the
// insert idempotent so a retried reconciliation cannot double-notify.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	DedupeKey *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckoutSession is the server-side pending-transaction record minted at
// checkout-initiation time. It pins the amount to the transaction reference so
// the browser cannot assert an arbitrary amount on the landing flow.
type CheckoutSession struct {
	TxRef     string          `json:"tx_ref"`
	CaseID    uuid.UUID       `json:"case_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Consumed  bool            `json:"consumed"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// FlexString accepts a JSON value that providers send either as a string or a
// number ("150.00" vs 150). It always surfaces the raw token as a string;
// parsing happens in the reconciliation logic where a bad value can degrade
// gracefully instead of failing the decode.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(trimmed)
	return nil
}

func (f FlexString) String() string { return string(f) }

// CallbackPayload is the body Paychangu POSTs to the asynchronous callback.
// The case identifier travels in the meta block the checkout was initiated with.
type CallbackPayload struct {
	TxRef  string       `json:"tx_ref"`
	Status string       `json:"status"`
	Amount FlexString   `json:"amount"`
	Meta   CallbackMeta `json:"meta"`
}

type CallbackMeta struct {
	CaseID string `json:"caseId"`
}

// ProcessPaymentRequest is the body of the authenticated processing endpoint
// invoked by the browser landing flow.
type ProcessPaymentRequest struct {
	TxRef  string     `json:"tx_ref"`
	Status string     `json:"status"`
	Amount FlexString `json:"amount"`
	CaseID string     `json:"caseId"`
}

// InitiateCheckoutRequest starts a checkout for a case. Amount is optional;
// when omitted the lawyer's hourly rate is used.
type InitiateCheckoutRequest struct {
	CaseID string     `json:"caseId"`
	Amount FlexString `json:"amount"`
}

// ReconcileChannel identifies which inbound channel delivered an assertion.
// The two channels differ in how much they trust the caller-supplied amount
// and in what an absent status token means.
type ReconcileChannel string

const (
	ChannelCallback   ReconcileChannel = "callback"
	ChannelProcessing ReconcileChannel = "processing"
)

// PaymentAssertion is one provider-asserted payment outcome, normalized from
// either inbound channel, ready for the reconciliation operation.
type PaymentAssertion struct {
	CaseID    uuid.UUID
	TxRef     string
	RawStatus string
	RawAmount string
	Channel   ReconcileChannel
}

// ReconcileResult reports what one reconciliation pass did.
type ReconcileResult struct {
	Payment     *Payment
	PriorStatus *PaymentStatus // nil when the payment row was created by this pass
	Notified    bool
}

// Completed reports whether this pass transitioned the payment into COMPLETED
// (creation counts; a replay that leaves it COMPLETED does not).
func (r *ReconcileResult) Completed() bool {
	if r.Payment == nil || r.Payment.Status != PaymentStatusCompleted {
		return false
	}
	return r.PriorStatus == nil || *r.PriorStatus != PaymentStatusCompleted
}
