package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/lawlink/payment-service/internal/store"
	"github.com/shopspring/decimal"
)

type checkoutRepoStub struct {
	store.Repository

	c          *domain.Case
	existing   *domain.Payment
	hourlyRate decimal.Decimal
	rateErr    error

	created *domain.CheckoutSession
}

func (s *checkoutRepoStub) FindCaseByID(ctx context.Context, caseID uuid.UUID) (*domain.Case, error) {
	if s.c == nil || s.c.ID != caseID {
		return nil, store.ErrCaseNotFound
	}
	return s.c, nil
}

func (s *checkoutRepoStub) FindPaymentByCaseID(ctx context.Context, caseID uuid.UUID) (*domain.Payment, error) {
	if s.existing == nil {
		return nil, store.ErrPaymentNotFound
	}
	return s.existing, nil
}

func (s *checkoutRepoStub) FindLawyerHourlyRate(ctx context.Context, lawyerID uuid.UUID) (decimal.Decimal, error) {
	if s.rateErr != nil {
		return decimal.Zero, s.rateErr
	}
	return s.hourlyRate, nil
}

func (s *checkoutRepoStub) CreateCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error {
	s.created = session
	return nil
}

func TestInitiateCheckout_MintsSessionWithCallerAmount(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{c: c}
	svc := NewService(repo, nil, nil)

	session, err := svc.InitiateCheckout(context.Background(), c.ClientID, "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
		Amount: "350.00",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected a checkout session to be persisted")
	}
	if !session.Amount.Equal(decimal.RequireFromString("350.00")) {
		t.Fatalf("expected amount 350.00, got %s", session.Amount)
	}

	recovered, ok := ParseCaseIDFromTxRef(session.TxRef)
	if !ok || recovered != c.ID {
		t.Fatalf("expected tx_ref %q to embed the case id", session.TxRef)
	}
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl != store.CheckoutSessionTTL {
		t.Fatalf("expected default ttl %s, got %s", store.CheckoutSessionTTL, ttl)
	}
}

func TestInitiateCheckout_DefaultsToHourlyRate(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{c: c, hourlyRate: decimal.NewFromInt(200)}
	svc := NewService(repo, nil, nil)

	session, err := svc.InitiateCheckout(context.Background(), c.ClientID, "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !session.Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected the lawyer's hourly rate 200, got %s", session.Amount)
	}
}

func TestInitiateCheckout_RejectsWhenNoPositiveAmountAvailable(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{c: c}
	svc := NewService(repo, nil, nil)

	_, err := svc.InitiateCheckout(context.Background(), c.ClientID, "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestInitiateCheckout_RejectsAlreadyPaidCase(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{
		c: c,
		existing: &domain.Payment{
			ID:     uuid.New(),
			CaseID: c.ID,
			Status: domain.PaymentStatusCompleted,
			Amount: decimal.NewFromInt(150),
		},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.InitiateCheckout(context.Background(), c.ClientID, "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
		Amount: "150",
	})
	if !errors.Is(err, ErrCaseAlreadyPaid) {
		t.Fatalf("expected ErrCaseAlreadyPaid, got %v", err)
	}
}

func TestInitiateCheckout_AllowsRetryAfterFailedPayment(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{
		c: c,
		existing: &domain.Payment{
			ID:     uuid.New(),
			CaseID: c.ID,
			Status: domain.PaymentStatusFailed,
			Amount: decimal.NewFromInt(150),
		},
	}
	svc := NewService(repo, nil, nil)

	if _, err := svc.InitiateCheckout(context.Background(), c.ClientID, "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
		Amount: "150",
	}); err != nil {
		t.Fatalf("expected a failed payment to be retryable, got %v", err)
	}
}

func TestInitiateCheckout_StrangerIsForbidden(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{c: c}
	svc := NewService(repo, nil, nil)

	_, err := svc.InitiateCheckout(context.Background(), uuid.New(), "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
		Amount: "150",
	})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestInitiateCheckout_HonorsConfiguredTTL(t *testing.T) {
	c := newTestCase()
	repo := &checkoutRepoStub{c: c}
	svc := NewService(repo, nil, nil)
	svc.SetCheckoutSessionTTL(2 * time.Hour)

	session, err := svc.InitiateCheckout(context.Background(), c.ClientID, "CLIENT", domain.InitiateCheckoutRequest{
		CaseID: c.ID.String(),
		Amount: "150",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ttl := session.ExpiresAt.Sub(session.CreatedAt); ttl != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %s", ttl)
	}
}
