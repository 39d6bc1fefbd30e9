/**
 * @description
 * This file contains the HTTP handlers for the payment-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * The two provider-facing handlers cover Paychangu's two delivery channels: the
 * server-to-server POST callback and the browser redirect that lands the user
 * back on the app after checkout.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lawlink/payment-service/internal/app"
	"github.com/lawlink/payment-service/internal/domain"
	"github.com/lawlink/payment-service/internal/store"
)

// PaymentHandlers holds the application service and the frontend base URL the
// redirect handler sends browsers back to.
type PaymentHandlers struct {
	service    *app.Service
	appBaseURL string
}

// NewPaymentHandlers creates a new PaymentHandlers instance.
func NewPaymentHandlers(service *app.Service, appBaseURL string) *PaymentHandlers {
	return &PaymentHandlers{
		service:    service,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// paymentResponse mirrors the shape the frontend polls for while waiting for
// settlement. Amounts are serialized as fixed two-decimal strings.
type paymentResponse struct {
	ID            string `json:"id"`
	CaseID        string `json:"case_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
	PaymentMethod string `json:"payment_method"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func buildPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID.String(),
		CaseID:        p.CaseID.String(),
		Status:        string(p.Status),
		Amount:        p.Amount.StringFixed(2),
		TransactionID: p.TransactionID,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type checkoutResponse struct {
	TxRef    string `json:"tx_ref"`
	CaseID   string `json:"caseId"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// CallbackHandler handles the asynchronous server-to-server POST from
// Paychangu. The endpoint is unauthenticated; trust comes from the callback
// body resolving to a known case and, for settlement, from the idempotent
// reconciliation it feeds into. It always acknowledges with 200 on success so
// the provider stops retrying.
func (h *PaymentHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid callback payload")
		return
	}

	rawCaseID := strings.TrimSpace(payload.Meta.CaseID)
	if rawCaseID == "" {
		log.Printf("level=warn component=api flow=callback msg=\"callback missing case id\" tx_ref=%s", payload.TxRef)
		writeError(w, http.StatusBadRequest, "Missing case ID in callback metadata")
		return
	}
	caseID, err := uuid.Parse(rawCaseID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid case ID in callback metadata")
		return
	}

	result, err := h.service.ReconcilePayment(r.Context(), domain.PaymentAssertion{
		CaseID:    caseID,
		TxRef:     strings.TrimSpace(payload.TxRef),
		RawStatus: payload.Status,
		RawAmount: payload.Amount.String(),
		Channel:   domain.ChannelCallback,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingTxRef):
			writeError(w, http.StatusBadRequest, "Missing transaction reference")
		case errors.Is(err, store.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "Case not found")
		default:
			log.Printf("level=error component=api flow=callback msg=\"reconciliation failed\" case_id=%s err=%v", caseID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process callback")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  result.Payment.Status,
	})
}

// CallbackRedirectHandler handles the browser hitting the callback URL via
// GET after Paychangu's checkout page redirects it. No state changes here;
// the browser is forwarded to the frontend processing page, which then calls
// the authenticated processing endpoint. An absent status on this channel
// means the checkout page only redirects after success, so it defaults to
// "successful".
func (h *PaymentHandlers) CallbackRedirectHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := strings.TrimSpace(query.Get("status"))
	txRef := strings.TrimSpace(query.Get("tx_ref"))
	amount := strings.TrimSpace(query.Get("amount"))

	if txRef == "" {
		http.Redirect(w, r, h.appBaseURL+"/dashboard/client/cases", http.StatusFound)
		return
	}

	if app.IsCancelledStatus(status) {
		target := h.appBaseURL + "/dashboard/client/cases"
		if caseID, ok := app.ParseCaseIDFromTxRef(txRef); ok {
			target = fmt.Sprintf("%s/dashboard/client/cases/%s/payment?payment=cancelled", h.appBaseURL, caseID)
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	if status == "" {
		status = "successful"
	}

	params := url.Values{}
	params.Set("status", status)
	params.Set("tx_ref", txRef)
	if amount != "" {
		params.Set("amount", amount)
	}
	http.Redirect(w, r, h.appBaseURL+"/dashboard/client/payment-processing?"+params.Encode(), http.StatusFound)
}

// ProcessPaymentHandler handles the authenticated processing call the
// frontend makes from the payment-processing page. It is the synchronous twin
// of the provider callback and converges on the same payment row.
func (h *PaymentHandlers) ProcessPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.authIdentity(w, r)
	if !ok {
		return
	}

	if allowed, retryAfter := h.service.ConsumeProcessRateLimit(r.Context(), userID); !allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		writeError(w, http.StatusTooManyRequests, "Too many payment processing attempts")
		return
	}

	var req domain.ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.service.ProcessPayment(r.Context(), userID, role, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingCaseID):
			writeError(w, http.StatusBadRequest, "Missing or invalid case ID")
		case errors.Is(err, app.ErrMissingTxRef):
			writeError(w, http.StatusBadRequest, "Missing transaction reference")
		case errors.Is(err, app.ErrNotAuthorized):
			writeError(w, http.StatusForbidden, "Not authorized to process payment for this case")
		case errors.Is(err, store.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "Case not found")
		default:
			log.Printf("level=error component=api flow=process msg=\"payment processing failed\" user_id=%s err=%v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process payment")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"payment": buildPaymentResponse(result.Payment),
	})
}

// GetPaymentHandler returns the payment record for a case. The frontend polls
// this while a payment is PENDING; the case's lawyer may read it too.
func (h *PaymentHandlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.authIdentity(w, r)
	if !ok {
		return
	}

	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid case ID format")
		return
	}

	payment, err := h.service.GetCasePayment(r.Context(), userID, role, caseID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotAuthorized):
			writeError(w, http.StatusForbidden, "Not authorized to view payments for this case")
		case errors.Is(err, store.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "Case not found")
		case errors.Is(err, store.ErrPaymentNotFound):
			writeError(w, http.StatusNotFound, "No payment found for this case")
		default:
			log.Printf("level=error component=api flow=get_payment msg=\"payment lookup failed\" case_id=%s err=%v", caseID, err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch payment")
		}
		return
	}

	writeJSON(w, http.StatusOK, buildPaymentResponse(payment))
}

// InitiateCheckoutHandler mints a server-side checkout session for a case so
// the settlement amount is pinned before the browser reaches the provider.
func (h *PaymentHandlers) InitiateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.authIdentity(w, r)
	if !ok {
		return
	}

	var req domain.InitiateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	session, err := h.service.InitiateCheckout(r.Context(), userID, role, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingCaseID):
			writeError(w, http.StatusBadRequest, "Missing or invalid case ID")
		case errors.Is(err, app.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "Checkout amount must be positive")
		case errors.Is(err, app.ErrNotAuthorized):
			writeError(w, http.StatusForbidden, "Not authorized to pay for this case")
		case errors.Is(err, app.ErrCaseAlreadyPaid):
			writeError(w, http.StatusConflict, "Case already has a completed payment")
		case errors.Is(err, store.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "Case not found")
		default:
			log.Printf("level=error component=api flow=checkout msg=\"checkout initiation failed\" user_id=%s err=%v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to initiate checkout")
		}
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		TxRef:    session.TxRef,
		CaseID:   session.CaseID.String(),
		Amount:   session.Amount.StringFixed(2),
		Currency: "MWK",
	})
}

// authIdentity pulls the authenticated user's id and role out of the request
// context. Writes the error response itself when the identity is unusable.
func (h *PaymentHandlers) authIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	rawUserID, ok := GetAuthUserID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, "", false
	}
	return userID, GetAuthRole(r.Context()), true
}
