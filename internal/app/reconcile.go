/**
 * @description
 * The reconciliation operation: one idempotent application of a provider-asserted
 * payment outcome to the persisted payment row for a case. Both inbound channels
 * (the asynchronous server callback and the synchronous landing flow's processing
 * endpoint) funnel into ReconcilePayment with the same contract.
 *
 * The operation is safe under arbitrary redelivery and under the two channels
 * racing for the same case: creates resolve through the unique case_id key, the
 * upsert reports the prior status atomically, and notification writes carry
 * dedupe keys so a retry after a partial failure cannot double-notify.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/lawlink/payment-service/internal/store"
	"github.com/shopspring/decimal"
)

const txRefPrefix = "CASE"

// Transaction references embed the case id by convention:
// CASE-<case uuid>-<unix millis>.
var txRefPattern = regexp.MustCompile(`^CASE-([0-9a-fA-F-]{36})-(\d+)$`)

// BuildTxRef mints a provider transaction reference for a checkout attempt.
func BuildTxRef(caseID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", txRefPrefix, caseID, at.UnixMilli())
}

// ParseCaseIDFromTxRef recovers the case id embedded in a transaction
// reference. The landing flow uses this when the provider redirect carries
// only the reference.
func ParseCaseIDFromTxRef(txRef string) (uuid.UUID, bool) {
	matches := txRefPattern.FindStringSubmatch(strings.TrimSpace(txRef))
	if len(matches) < 3 {
		return uuid.Nil, false
	}
	caseID, err := uuid.Parse(matches[1])
	if err != nil {
		return uuid.Nil, false
	}
	return caseID, true
}

// parseAmount interprets a caller-supplied amount token. Unparseable or
// negative values degrade to "absent" rather than failing the operation; a
// provider formatting quirk must not lose a transaction.
func parseAmount(raw string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

// ReconcilePayment applies one payment assertion to the case's payment row.
// Returns store.ErrCaseNotFound for unknown cases; reconciliation never
// creates orphaned payments.
func (s *Service) ReconcilePayment(ctx context.Context, assertion domain.PaymentAssertion) (*domain.ReconcileResult, error) {
	if assertion.CaseID == uuid.Nil {
		return nil, ErrMissingCaseID
	}
	if strings.TrimSpace(assertion.TxRef) == "" {
		return nil, ErrMissingTxRef
	}

	c, err := s.repo.FindCaseByID(ctx, assertion.CaseID)
	if err != nil {
		return nil, err
	}

	status := s.resolveStatus(ctx, assertion)
	amount := s.resolveAmount(ctx, assertion, c)

	payment, priorStatus, err := s.repo.UpsertPayment(ctx, store.UpsertPaymentParams{
		NewPaymentID:  uuid.New(),
		CaseID:        c.ID,
		UserID:        c.ClientID,
		Amount:        amount,
		Status:        status,
		TransactionID: assertion.TxRef,
		PaymentMethod: domain.PaymentMethodPaychangu,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.ReconcileResult{Payment: payment, PriorStatus: priorStatus}

	if payment.Status == domain.PaymentStatusCompleted {
		// Notification and session writes run on every COMPLETED outcome, not
		// only on the transition: a retry after a partial failure must be able
		// to finish the remaining writes. The dedupe keys keep them idempotent.
		if err := s.notifySettlement(ctx, c, payment); err != nil {
			return nil, err
		}
		if _, err := s.repo.ConsumeCheckoutSession(ctx, payment.TransactionID); err != nil {
			log.Printf("level=warn component=service flow=reconcile msg=\"checkout session consume failed\" tx_ref=%s err=%v", payment.TransactionID, err)
		}

		if result.Completed() {
			result.Notified = true
			s.publishPaymentEvent(ctx, c, payment, "payment.completed")
		}

		log.Printf("level=info component=service flow=reconcile outcome=completed case_id=%s payment_id=%s tx_ref=%s amount=%s channel=%s",
			c.ID, payment.ID, payment.TransactionID, payment.Amount.StringFixed(2), assertion.Channel)
		return result, nil
	}

	if payment.Status == domain.PaymentStatusFailed && (priorStatus == nil || *priorStatus != domain.PaymentStatusFailed) {
		s.publishPaymentEvent(ctx, c, payment, "payment.failed")
	}

	log.Printf("level=info component=service flow=reconcile outcome=%s case_id=%s tx_ref=%s channel=%s",
		strings.ToLower(string(payment.Status)), c.ID, payment.TransactionID, assertion.Channel)
	return result, nil
}

// ProcessPayment is the landing flow's authenticated entry into
// reconciliation. The caller must be the case's client or an administrator;
// the case id may be supplied directly or recovered from the transaction
// reference when the provider redirect dropped it.
func (s *Service) ProcessPayment(ctx context.Context, userID uuid.UUID, role string, req domain.ProcessPaymentRequest) (*domain.ReconcileResult, error) {
	caseID := uuid.Nil
	if trimmed := strings.TrimSpace(req.CaseID); trimmed != "" {
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, ErrMissingCaseID
		}
		caseID = parsed
	} else if parsed, ok := ParseCaseIDFromTxRef(req.TxRef); ok {
		caseID = parsed
	}
	if caseID == uuid.Nil {
		return nil, ErrMissingCaseID
	}
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, ErrMissingTxRef
	}

	c, err := s.repo.FindCaseByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeCaseAccess(c, userID, role, false); err != nil {
		return nil, err
	}

	return s.ReconcilePayment(ctx, domain.PaymentAssertion{
		CaseID:    caseID,
		TxRef:     strings.TrimSpace(req.TxRef),
		RawStatus: req.Status,
		RawAmount: req.Amount.String(),
		Channel:   domain.ChannelProcessing,
	})
}

// resolveStatus normalizes the asserted token and, when a provider client is
// configured, confirms landing-flow success claims against the provider's
// verification API. The asynchronous callback is already server-to-server and
// is not re-verified.
func (s *Service) resolveStatus(ctx context.Context, assertion domain.PaymentAssertion) domain.PaymentStatus {
	status := normalizePaymentStatus(assertion.RawStatus)
	if s.providerClient == nil || assertion.Channel != domain.ChannelProcessing || status != domain.PaymentStatusCompleted {
		return status
	}

	verified, err := s.providerClient.VerifyTransaction(ctx, assertion.TxRef)
	if err != nil {
		log.Printf("level=warn component=service flow=reconcile msg=\"provider verification unavailable; trusting assertion\" tx_ref=%s err=%v", assertion.TxRef, err)
		return status
	}
	return normalizePaymentStatus(verified.Status)
}

// resolveAmount determines the settlement amount. The processing channel
// prefers the checkout session's pinned amount over anything the browser
// supplied; the callback channel trusts the provider's figure first. Both then
// fall back to the existing payment's positive amount, then the lawyer's
// hourly rate, then zero.
func (s *Service) resolveAmount(ctx context.Context, assertion domain.PaymentAssertion, c *domain.Case) decimal.Decimal {
	callerAmount, callerOK := parseAmount(assertion.RawAmount)

	var sessionAmount decimal.Decimal
	sessionOK := false
	session, err := s.repo.FindCheckoutSessionByTxRef(ctx, assertion.TxRef)
	if err != nil {
		if !errors.Is(err, store.ErrCheckoutSessionNotFound) {
			log.Printf("level=warn component=service flow=reconcile msg=\"checkout session lookup failed\" tx_ref=%s err=%v", assertion.TxRef, err)
		}
	} else if session.Amount.IsPositive() {
		sessionAmount, sessionOK = session.Amount, true
	}

	switch assertion.Channel {
	case domain.ChannelProcessing:
		if sessionOK {
			return sessionAmount
		}
		if callerOK && callerAmount.IsPositive() {
			return callerAmount
		}
	default:
		if callerOK && callerAmount.IsPositive() {
			return callerAmount
		}
		if sessionOK {
			return sessionAmount
		}
	}

	existing, err := s.repo.FindPaymentByCaseID(ctx, assertion.CaseID)
	if err == nil && existing.Amount.IsPositive() {
		return existing.Amount
	}
	if err != nil && !errors.Is(err, store.ErrPaymentNotFound) {
		log.Printf("level=warn component=service flow=reconcile msg=\"existing payment lookup failed\" case_id=%s err=%v", assertion.CaseID, err)
	}

	rate, err := s.repo.FindLawyerHourlyRate(ctx, c.LawyerID)
	if err != nil {
		log.Printf("level=warn component=service flow=reconcile msg=\"hourly rate lookup failed\" lawyer_id=%s err=%v", c.LawyerID, err)
		return decimal.Zero
	}
	if rate.IsPositive() {
		return rate
	}
	return decimal.Zero
}
