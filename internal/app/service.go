/**
 * @description
 * This file contains the core business logic for the payment-service. The `Service`
 * struct orchestrates payment reconciliation and checkout initiation, coordinating
 * between the database repository, the Paychangu verification client, and the
 * message broker.
 *
 * Key features:
 * - Implements the reconciliation operation both provider channels converge on.
 * - Mints checkout sessions so settlement amounts cannot be spoofed by the browser.
 * - Publishes payment lifecycle events to RabbitMQ for asynchronous processing
 *   by other services.
 *
 * @dependencies
 * - context, errors, log: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/paychangu, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/lawlink/payment-service/internal/store"
	"github.com/lawlink/payment-service/pkg/paychangu"
	"github.com/lawlink/payment-service/pkg/rabbitmq"
)

var (
	ErrMissingCaseID   = errors.New("missing case id")
	ErrMissingTxRef    = errors.New("missing transaction reference")
	ErrNotAuthorized   = errors.New("user is not authorized for this case")
	ErrCaseAlreadyPaid = errors.New("case already has a completed payment")
	ErrInvalidAmount   = errors.New("checkout amount must be positive")
)

// RoleAdmin is the platform role that may act on any case.
const RoleAdmin = "ADMIN"

// RateLimiter is the distributed limiter consulted by the processing endpoint.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope string, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for payments.
type Service struct {
	repo           store.Repository
	providerClient *paychangu.Client
	eventProducer  rabbitmq.Publisher

	rateLimiter            RateLimiter
	processRateLimitPerMin int
	checkoutSessionTTL     time.Duration
}

// NewService creates a new payment service instance. The provider client and
// event producer are optional; a nil producer means events are skipped and a
// nil client means landing-flow assertions are taken at face value.
func NewService(repo store.Repository, provider *paychangu.Client, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:               repo,
		providerClient:     provider,
		eventProducer:      producer,
		checkoutSessionTTL: store.CheckoutSessionTTL,
	}
}

// SetCheckoutSessionTTL overrides how long minted checkout sessions stay
// redeemable.
func (s *Service) SetCheckoutSessionTTL(ttl time.Duration) {
	if ttl > 0 {
		s.checkoutSessionTTL = ttl
	}
}

// SetRateLimiter installs the distributed limiter for the processing endpoint.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.processRateLimitPerMin = perMinute
}

// ConsumeProcessRateLimit charges one processing-endpoint call against the
// user's rate budget. It returns retry-after seconds when the budget is spent.
// A missing or failing limiter never blocks the payment path.
func (s *Service) ConsumeProcessRateLimit(ctx context.Context, userID uuid.UUID) (allowed bool, retryAfterSeconds int) {
	if s.rateLimiter == nil || s.processRateLimitPerMin <= 0 {
		return true, 0
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "payment_process", userID.String(), s.processRateLimitPerMin, time.Minute)
	if err != nil {
		log.Printf("level=warn component=service flow=rate_limit msg=\"limiter unavailable; allowing request\" user_id=%s err=%v", userID, err)
		return true, 0
	}
	if count > s.processRateLimitPerMin {
		return false, retryAfter
	}
	return true, 0
}

// AuthorizeCaseAccess verifies the caller may act on the case's payment: the
// case's client, the case's lawyer (read paths), or an administrator.
func (s *Service) AuthorizeCaseAccess(c *domain.Case, userID uuid.UUID, role string, includeLawyer bool) error {
	if role == RoleAdmin {
		return nil
	}
	if c.ClientID == userID {
		return nil
	}
	if includeLawyer && c.LawyerID == userID {
		return nil
	}
	return ErrNotAuthorized
}

// GetCasePayment returns the payment for a case to an authorized caller. The
// landing page polls this while the payment is still PENDING.
func (s *Service) GetCasePayment(ctx context.Context, userID uuid.UUID, role string, caseID uuid.UUID) (*domain.Payment, error) {
	c, err := s.repo.FindCaseByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeCaseAccess(c, userID, role, true); err != nil {
		return nil, err
	}
	return s.repo.FindPaymentByCaseID(ctx, caseID)
}

func (s *Service) publishPaymentEvent(ctx context.Context, c *domain.Case, payment *domain.Payment, routingKey string) {
	if s.eventProducer == nil {
		return
	}
	event := domain.PaymentEvent{
		PaymentID:     payment.ID,
		CaseID:        c.ID,
		ClientID:      c.ClientID,
		LawyerID:      c.LawyerID,
		Amount:        payment.Amount,
		Status:        payment.Status,
		TransactionID: payment.TransactionID,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.eventProducer.Publish(ctx, "payment_events", routingKey, event); err != nil {
		log.Printf("level=warn component=service flow=events msg=\"payment event publish failed\" case_id=%s routing_key=%s err=%v", c.ID, routingKey, err)
	}
}

func (s *Service) notifySettlement(ctx context.Context, c *domain.Case, payment *domain.Payment) error {
	amount := payment.Amount.StringFixed(2)

	clientKey := fmt.Sprintf("payment_completed:%s:%s:client", c.ID, payment.TransactionID)
	clientNote := domain.Notification{
		ID:        uuid.New(),
		UserID:    c.ClientID,
		Title:     "Payment Completed",
		Message:   fmt.Sprintf("Your payment of MWK %s for case %q has been completed successfully.", amount, c.Title),
		DedupeKey: &clientKey,
	}
	if err := s.repo.CreateNotification(ctx, clientNote); err != nil {
		return fmt.Errorf("notify client: %w", err)
	}

	lawyerKey := fmt.Sprintf("payment_completed:%s:%s:lawyer", c.ID, payment.TransactionID)
	lawyerNote := domain.Notification{
		ID:        uuid.New(),
		UserID:    c.LawyerID,
		Title:     "Payment Received",
		Message:   fmt.Sprintf("Payment of MWK %s received for case %q.", amount, c.Title),
		DedupeKey: &lawyerKey,
	}
	if err := s.repo.CreateNotification(ctx, lawyerNote); err != nil {
		return fmt.Errorf("notify lawyer: %w", err)
	}

	return nil
}
