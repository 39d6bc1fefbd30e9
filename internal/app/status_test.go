package app

import (
	"testing"

	"github.com/lawlink/payment-service/internal/domain"
)

func TestNormalizePaymentStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.PaymentStatus
	}{
		{name: "successful maps to completed", raw: "successful", want: domain.PaymentStatusCompleted},
		{name: "success maps to completed", raw: "success", want: domain.PaymentStatusCompleted},
		{name: "completed maps to completed", raw: "completed", want: domain.PaymentStatusCompleted},
		{name: "uppercase is accepted", raw: "SUCCESSFUL", want: domain.PaymentStatusCompleted},
		{name: "surrounding whitespace is ignored", raw: "  failed  ", want: domain.PaymentStatusFailed},
		{name: "failed maps to failed", raw: "failed", want: domain.PaymentStatusFailed},
		{name: "failure maps to failed", raw: "failure", want: domain.PaymentStatusFailed},
		{name: "error maps to failed", raw: "error", want: domain.PaymentStatusFailed},
		{name: "empty token degrades to pending", raw: "", want: domain.PaymentStatusPending},
		{name: "unknown token degrades to pending", raw: "settlement_in_flight", want: domain.PaymentStatusPending},
		{name: "cancelled is not a payment state", raw: "cancelled", want: domain.PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePaymentStatus(tt.raw)
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIsCancelledStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "cancelled", want: true},
		{raw: "canceled", want: true},
		{raw: "CANCELLED", want: true},
		{raw: " canceled ", want: true},
		{raw: "failed", want: false},
		{raw: "", want: false},
	}

	for _, tt := range tests {
		got := IsCancelledStatus(tt.raw)
		if got != tt.want {
			t.Fatalf("IsCancelledStatus(%q): expected %t, got %t", tt.raw, tt.want, got)
		}
	}
}
