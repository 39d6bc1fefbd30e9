/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the payment-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - github.com/shopspring/decimal: For NUMERIC amounts.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Case methods (read-only; rows are owned by case management)
	FindCaseByID(ctx context.Context, caseID uuid.UUID) (*domain.Case, error)
	// FindLawyerHourlyRate returns the lawyer's configured hourly rate, the
	// default settlement amount when neither the caller nor an existing payment
	// supplies one. Zero when no rate is configured.
	FindLawyerHourlyRate(ctx context.Context, lawyerID uuid.UUID) (decimal.Decimal, error)

	// Payment methods
	FindPaymentByCaseID(ctx context.Context, caseID uuid.UUID) (*domain.Payment, error)
	// UpsertPayment applies one reconciliation write atomically against the
	// unique case_id key and reports the row's status before the write (nil on
	// create). Racing creates resolve through the conflict clause; the caller
	// uses the prior status to guard notification side effects.
	UpsertPayment(ctx context.Context, params UpsertPaymentParams) (*domain.Payment, *domain.PaymentStatus, error)

	// Notification methods
	CreateNotification(ctx context.Context, item domain.Notification) error

	// Checkout session methods
	CreateCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error
	FindCheckoutSessionByTxRef(ctx context.Context, txRef string) (*domain.CheckoutSession, error)
	// ConsumeCheckoutSession marks a session used; returns false when it was
	// already consumed or never existed.
	ConsumeCheckoutSession(ctx context.Context, txRef string) (bool, error)
}

// UpsertPaymentParams carries one reconciliation write. NewPaymentID is used
// only when the write creates the row.
type UpsertPaymentParams struct {
	NewPaymentID  uuid.UUID
	CaseID        uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Status        domain.PaymentStatus
	TransactionID string
	PaymentMethod string
}

// CheckoutSessionTTL bounds how long a minted tx_ref stays redeemable.
const CheckoutSessionTTL = 24 * time.Hour
