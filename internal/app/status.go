package app

import (
	"strings"

	"github.com/lawlink/payment-service/internal/domain"
)

// normalizePaymentStatus maps the provider's free-text status token onto the
// canonical enum. It is total: unrecognized or absent input means PENDING, so a
// provider wording change can never lose a transaction.
func normalizePaymentStatus(raw string) domain.PaymentStatus {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "successful", "success", "completed":
		return domain.PaymentStatusCompleted
	case "failed", "failure", "error":
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusPending
	}
}

// IsCancelledStatus recognizes the provider's cancellation wordings on the
// browser redirect. Cancellation is a routing concern for the landing flow,
// not a payment state; the enum stays three-valued.
func IsCancelledStatus(raw string) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "cancelled", "canceled":
		return true
	default:
		return false
	}
}
