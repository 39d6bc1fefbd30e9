/**
 * @description
 * This package provides a client for the Paychangu payments API. It encapsulates
 * the logic for making authenticated HTTP requests to Paychangu's verification
 * endpoint and parsing responses.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package paychangu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a client for the Paychangu API.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// NewClient creates a new Paychangu API client.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// VerifyResponse is the expected response from Paychangu's verify endpoint.
type VerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TxRef    string `json:"tx_ref"`
		Status   string `json:"status"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// VerifiedTransaction is the subset of the verification result the service uses.
type VerifiedTransaction struct {
	TxRef  string
	Status string
	Amount string
}

// ErrorResponse represents an error from the Paychangu API.
type ErrorResponse struct {
	StatusCode int
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("paychangu api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("paychangu api error (%d)", e.StatusCode)
}

// VerifyTransaction looks up the authoritative state of one checkout attempt
// by transaction reference.
func (c *Client) VerifyTransaction(ctx context.Context, txRef string) (*VerifiedTransaction, error) {
	endpoint := fmt.Sprintf("%s/verify-payment/%s", c.BaseURL, url.PathEscape(txRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &ErrorResponse{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	}

	var parsed VerifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	status := parsed.Data.Status
	if status == "" {
		status = parsed.Status
	}
	return &VerifiedTransaction{
		TxRef:  parsed.Data.TxRef,
		Status: status,
		Amount: parsed.Data.Amount,
	}, nil
}
