/**
 * @description
 * Pure mirrors of the state-transition rules encoded in UpsertPayment's
 * conflict clause. The SQL is the authoritative copy; these functions exist so
 * the policy matrix can be pinned by table tests and read without parsing the
 * CASE expressions. Any change here must be made to the SQL in lockstep.
 */

package store

import (
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// applyStatusTransition decides the stored status when an assertion lands on
// an existing payment row:
//   - COMPLETED is never downgraded to PENDING;
//   - COMPLETED moves to FAILED only when the assertion carries a different
//     transaction reference (a new checkout attempt);
//   - every other assertion wins.
func applyStatusTransition(current domain.PaymentStatus, currentTxRef string, asserted domain.PaymentStatus, assertedTxRef string) domain.PaymentStatus {
	if current == domain.PaymentStatusCompleted && asserted == domain.PaymentStatusPending {
		return current
	}
	if current == domain.PaymentStatusCompleted && asserted == domain.PaymentStatusFailed && currentTxRef == assertedTxRef {
		return current
	}
	return asserted
}

// applyAmountTransition decides the stored amount: a positive asserted amount
// wins, zero never overwrites an existing figure.
func applyAmountTransition(current, asserted decimal.Decimal) decimal.Decimal {
	if asserted.IsPositive() {
		return asserted
	}
	return current
}
