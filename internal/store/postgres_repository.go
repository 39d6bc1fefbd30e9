/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to cases, payments, notifications, and checkout sessions.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrCaseNotFound            = errors.New("case not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrCheckoutSessionNotFound = errors.New("checkout session not found")
	ErrCheckoutSessionExists   = errors.New("checkout session already exists")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindCaseByID retrieves a case from the database by its ID.
func (r *PostgresRepository) FindCaseByID(ctx context.Context, caseID uuid.UUID) (*domain.Case, error) {
	var c domain.Case
	query := `SELECT id, client_id, lawyer_id, title, status FROM cases WHERE id = $1`
	err := r.db.QueryRow(ctx, query, caseID).Scan(&c.ID, &c.ClientID, &c.LawyerID, &c.Title, &c.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindLawyerHourlyRate reads the configured hourly rate from the lawyer's profile.
// A lawyer without a profile row yields zero rather than an error; the amount
// precedence chain treats zero as "no configured rate".
func (r *PostgresRepository) FindLawyerHourlyRate(ctx context.Context, lawyerID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	query := `SELECT COALESCE(hourly_rate, 0)::text FROM lawyer_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, lawyerID).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse hourly rate %q: %w", raw, err)
	}
	return rate, nil
}

// FindPaymentByCaseID retrieves the payment for a case via the unique case_id key.
func (r *PostgresRepository) FindPaymentByCaseID(ctx context.Context, caseID uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, case_id, user_id, amount::text, status, transaction_id, payment_method, created_at, updated_at
		FROM payments
		WHERE case_id = $1
	`
	row := r.db.QueryRow(ctx, query, caseID)
	payment, err := scanPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// UpsertPayment applies one reconciliation write in a single statement. The
// `prior` CTE captures the pre-write status so the caller can tell a creation
// or status transition apart from a replay. The conflict clause enforces the
// monotonicity policy, mirrored by applyStatusTransition and
// applyAmountTransition in payment_policy.go:
//   - COMPLETED is never downgraded to PENDING;
//   - COMPLETED moves to FAILED only when the assertion carries a different
//     transaction reference (a new checkout attempt);
//   - a positive amount is never overwritten with zero.
//
// Two requests racing to create the row both pass through the unique case_id
// constraint; one inserts, the other's conflict clause updates. In that window
// both may observe a nil prior status, so notification writes must stay
// idempotent on their own (dedupe keys).
func (r *PostgresRepository) UpsertPayment(ctx context.Context, params UpsertPaymentParams) (*domain.Payment, *domain.PaymentStatus, error) {
	query := `
		WITH prior AS (
			SELECT status FROM payments WHERE case_id = $1
		), applied AS (
			INSERT INTO payments (id, case_id, user_id, amount, status, transaction_id, payment_method, created_at, updated_at)
			VALUES ($2, $1, $3, $4::numeric, $5, $6, $7, NOW(), NOW())
			ON CONFLICT (case_id) DO UPDATE SET
				status = CASE
					WHEN payments.status = 'COMPLETED' AND EXCLUDED.status = 'PENDING' THEN payments.status
					WHEN payments.status = 'COMPLETED' AND EXCLUDED.status = 'FAILED'
						AND payments.transaction_id = EXCLUDED.transaction_id THEN payments.status
					ELSE EXCLUDED.status
				END,
				amount = CASE
					WHEN EXCLUDED.amount > 0 THEN EXCLUDED.amount
					ELSE payments.amount
				END,
				transaction_id = EXCLUDED.transaction_id,
				updated_at = NOW()
			RETURNING id, case_id, user_id, amount::text, status, transaction_id, payment_method, created_at, updated_at
		)
		SELECT a.id, a.case_id, a.user_id, a.amount, a.status, a.transaction_id, a.payment_method, a.created_at, a.updated_at, p.status
		FROM applied a
		LEFT JOIN prior p ON TRUE
	`

	var (
		payment   domain.Payment
		rawAmount string
		status    string
		prior     *string
	)
	err := r.db.QueryRow(ctx, query,
		params.CaseID,
		params.NewPaymentID,
		params.UserID,
		params.Amount.String(),
		string(params.Status),
		params.TransactionID,
		params.PaymentMethod,
	).Scan(
		&payment.ID,
		&payment.CaseID,
		&payment.UserID,
		&rawAmount,
		&status,
		&payment.TransactionID,
		&payment.PaymentMethod,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&prior,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("upsert payment for case %s: %w", params.CaseID, err)
	}

	payment.Amount, err = decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("parse persisted amount %q: %w", rawAmount, err)
	}
	payment.Status = domain.PaymentStatus(status)

	var priorStatus *domain.PaymentStatus
	if prior != nil {
		s := domain.PaymentStatus(*prior)
		priorStatus = &s
	}
	return &payment, priorStatus, nil
}

// CreateNotification writes a notification and supports idempotent dedupe keys.
func (r *PostgresRepository) CreateNotification(ctx context.Context, item domain.Notification) error {
	if item.DedupeKey != nil && *item.DedupeKey != "" {
		query := `
			INSERT INTO notifications (id, user_id, title, message, read, dedupe_key, created_at)
			VALUES ($1, $2, $3, $4, FALSE, $5, NOW())
			ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		`
		_, err := r.db.Exec(ctx, query, item.ID, item.UserID, item.Title, item.Message, item.DedupeKey)
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, title, message, read, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NULL, NOW())
	`
	_, err := r.db.Exec(ctx, query, item.ID, item.UserID, item.Title, item.Message)
	return err
}

// CreateCheckoutSession persists a newly minted tx_ref with its pinned amount.
func (r *PostgresRepository) CreateCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (tx_ref, case_id, user_id, amount, consumed, created_at, expires_at)
		VALUES ($1, $2, $3, $4::numeric, FALSE, NOW(), $5)
	`
	_, err := r.db.Exec(ctx, query,
		session.TxRef,
		session.CaseID,
		session.UserID,
		session.Amount.String(),
		session.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCheckoutSessionExists
		}
		return err
	}
	return nil
}

// FindCheckoutSessionByTxRef loads a session; expired sessions are not returned.
func (r *PostgresRepository) FindCheckoutSessionByTxRef(ctx context.Context, txRef string) (*domain.CheckoutSession, error) {
	var (
		session   domain.CheckoutSession
		rawAmount string
	)
	query := `
		SELECT tx_ref, case_id, user_id, amount::text, consumed, created_at, expires_at
		FROM checkout_sessions
		WHERE tx_ref = $1 AND expires_at > NOW()
	`
	err := r.db.QueryRow(ctx, query, txRef).Scan(
		&session.TxRef,
		&session.CaseID,
		&session.UserID,
		&rawAmount,
		&session.Consumed,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCheckoutSessionNotFound
		}
		return nil, err
	}
	session.Amount, err = decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("parse session amount %q: %w", rawAmount, err)
	}
	return &session, nil
}

// ConsumeCheckoutSession marks a session used exactly once.
func (r *PostgresRepository) ConsumeCheckoutSession(ctx context.Context, txRef string) (bool, error) {
	query := `
		UPDATE checkout_sessions
		SET consumed = TRUE
		WHERE tx_ref = $1 AND consumed = FALSE
	`
	result, err := r.db.Exec(ctx, query, txRef)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment   domain.Payment
		rawAmount string
		status    string
	)
	err := row.Scan(
		&payment.ID,
		&payment.CaseID,
		&payment.UserID,
		&rawAmount,
		&status,
		&payment.TransactionID,
		&payment.PaymentMethod,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.Amount, err = decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", rawAmount, err)
	}
	payment.Status = domain.PaymentStatus(status)
	return &payment, nil
}
