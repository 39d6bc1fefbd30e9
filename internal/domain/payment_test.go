package domain

import (
	"encoding/json"
	"testing"
)

func TestFlexString_AcceptsStringAndNumberTokens(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{name: "quoted decimal", json: `{"amount":"150.00"}`, want: "150.00"},
		{name: "bare integer", json: `{"amount":150}`, want: "150"},
		{name: "bare decimal", json: `{"amount":150.5}`, want: "150.5"},
		{name: "null", json: `{"amount":null}`, want: ""},
		{name: "absent", json: `{}`, want: ""},
		{name: "empty string", json: `{"amount":""}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Amount FlexString `json:"amount"`
			}
			if err := json.Unmarshal([]byte(tt.json), &payload); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if payload.Amount.String() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, payload.Amount.String())
			}
		})
	}
}

func TestCallbackPayload_DecodesProviderBody(t *testing.T) {
	body := `{
		"tx_ref": "CASE-0b38e8e6-40b5-4a65-9dd1-47fca29f7c2b-1700000000000",
		"status": "successful",
		"amount": 150,
		"meta": {"caseId": "0b38e8e6-40b5-4a65-9dd1-47fca29f7c2b"}
	}`

	var payload CallbackPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.TxRef != "CASE-0b38e8e6-40b5-4a65-9dd1-47fca29f7c2b-1700000000000" {
		t.Fatalf("unexpected tx_ref %q", payload.TxRef)
	}
	if payload.Status != "successful" {
		t.Fatalf("unexpected status %q", payload.Status)
	}
	if payload.Amount.String() != "150" {
		t.Fatalf("unexpected amount %q", payload.Amount.String())
	}
	if payload.Meta.CaseID != "0b38e8e6-40b5-4a65-9dd1-47fca29f7c2b" {
		t.Fatalf("unexpected case id %q", payload.Meta.CaseID)
	}
}

func TestReconcileResultCompleted(t *testing.T) {
	completed := PaymentStatusCompleted
	pending := PaymentStatusPending

	tests := []struct {
		name   string
		result ReconcileResult
		want   bool
	}{
		{
			name:   "created as completed",
			result: ReconcileResult{Payment: &Payment{Status: PaymentStatusCompleted}},
			want:   true,
		},
		{
			name:   "upgraded from pending",
			result: ReconcileResult{Payment: &Payment{Status: PaymentStatusCompleted}, PriorStatus: &pending},
			want:   true,
		},
		{
			name:   "completed replay",
			result: ReconcileResult{Payment: &Payment{Status: PaymentStatusCompleted}, PriorStatus: &completed},
			want:   false,
		},
		{
			name:   "still pending",
			result: ReconcileResult{Payment: &Payment{Status: PaymentStatusPending}},
			want:   false,
		},
		{
			name:   "no payment",
			result: ReconcileResult{},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Completed(); got != tt.want {
				t.Fatalf("expected %t, got %t", tt.want, got)
			}
		})
	}
}
