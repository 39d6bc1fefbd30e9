package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/lawlink/payment-service/internal/store"
)

// InitiateCheckout mints a transaction reference and a server-side checkout
// session for a case. The session pins the settlement amount to the reference
// so neither the redirect query string nor the processing request body can
// assert a different figure later.
func (s *Service) InitiateCheckout(ctx context.Context, userID uuid.UUID, role string, req domain.InitiateCheckoutRequest) (*domain.CheckoutSession, error) {
	caseID, err := uuid.Parse(req.CaseID)
	if err != nil {
		return nil, ErrMissingCaseID
	}

	c, err := s.repo.FindCaseByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeCaseAccess(c, userID, role, false); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindPaymentByCaseID(ctx, caseID)
	if err != nil && !errors.Is(err, store.ErrPaymentNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == domain.PaymentStatusCompleted {
		return nil, ErrCaseAlreadyPaid
	}

	amount, ok := parseAmount(req.Amount.String())
	if !ok || !amount.IsPositive() {
		rate, rateErr := s.repo.FindLawyerHourlyRate(ctx, c.LawyerID)
		if rateErr != nil {
			return nil, rateErr
		}
		amount = rate
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		TxRef:     BuildTxRef(caseID, now),
		CaseID:    caseID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: now,
		ExpiresAt: now.Add(s.checkoutSessionTTL),
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
