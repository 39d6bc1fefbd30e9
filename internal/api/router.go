/**
 * @description
 * This file sets up the HTTP router for the payment-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * The Paychangu callback endpoints stay outside the auth group: the provider's
 * server POSTs there without platform credentials, and the browser redirect
 * arrives before the frontend has attached a token.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// PaymentRoutes creates and returns a new router for the payment service.
func PaymentRoutes(h *PaymentHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Provider-facing endpoints. POST is Paychangu's server callback, GET is
	// the browser returning from the hosted checkout page.
	r.Post("/payments/callback", h.CallbackHandler)
	r.Get("/payments/callback", h.CallbackRedirectHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Post("/payments/checkout", h.InitiateCheckoutHandler)
		r.Post("/payments/process", h.ProcessPaymentHandler)
		r.Get("/payments/{caseID}", h.GetPaymentHandler)
	})

	return r
}
