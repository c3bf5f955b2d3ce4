package payout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

var (
	// ErrNoAddressFound means the provider could not resolve a VPA for the
	// phone number.
	ErrNoAddressFound = errors.New("no payment address found for phone number")
	// ErrInvalidAmount means the transfer amount is not a finite positive
	// number.
	ErrInvalidAmount = errors.New("invalid payout amount")
)

// TransferError is a rejection from the provider's transfer endpoint,
// carrying the provider's own message. Transfers are never retried here;
// the orchestrator records the failure and a human follows up.
type TransferError struct {
	Message string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("payout rejected: %s", e.Message)
}

// Address resolution sources.
const (
	ResolvedViaLive  = "live"
	ResolvedViaCache = "cache"
)

// VPAResolution is a payment address resolved from a phone number, either
// freshly from the provider or from a cached transaction log row.
type VPAResolution struct {
	Address           string `json:"vpa_address"`
	AccountHolderName string `json:"account_holder_name"`
}

// Request is one payout attempt. ReferenceID must be unique per attempt;
// the provider uses it for idempotency and it cross-references the
// transaction log. CachedVPA, when set, skips the resolution step.
type Request struct {
	Amount          float64
	Phone           string
	BeneficiaryName string
	ReferenceID     string
	CachedVPA       *VPAResolution
	Note            string
}

// TransferResult is the unified outcome of a payout. The shape is identical
// whether the VPA came from the cache or a live resolution, so downstream
// logging never needs to branch.
type TransferResult struct {
	Status               string `json:"status"`
	TransactionID        string `json:"transaction_id"`
	ReferenceID          string `json:"reference_id"`
	Message              string `json:"message"`
	UTR                  string `json:"utr"`
	VPAAddress           string `json:"vpa_address"`
	VPAAccountHolderName string `json:"vpa_account_holder_name"`
	ResolvedVia          string `json:"resolved_via"`
}

// Client talks to the disbursement provider: one endpoint resolves a phone
// number to a UPI payment address, another initiates the transfer.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewClient creates a payout client with the provider credentials.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolveVPA asks the provider for the payment address registered against a
// 10-digit phone number.
func (c *Client) ResolveVPA(phone, referenceID string) (*VPAResolution, error) {
	payload := map[string]interface{}{
		"phone":       phone,
		"referenceId": referenceID,
		"note":        "mystery box reward",
	}

	var resp struct {
		Success           bool   `json:"success"`
		VPAAddress        string `json:"vpaAddress"`
		AccountHolderName string `json:"accountHolderName"`
		Message           string `json:"message"`
	}
	if err := c.post("/v1/vpa/resolve", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.VPAAddress == "" {
		return nil, ErrNoAddressFound
	}
	return &VPAResolution{
		Address:           resp.VPAAddress,
		AccountHolderName: resp.AccountHolderName,
	}, nil
}

// Transfer initiates a UPI transfer to an already-resolved address.
func (c *Client) Transfer(amount float64, vpa *VPAResolution, beneficiaryName, referenceID, note string) (*TransferResult, error) {
	payload := map[string]interface{}{
		"amount":          amount,
		"vpaAddress":      vpa.Address,
		"beneficiaryName": beneficiaryName,
		"referenceId":     referenceID,
		"note":            note,
	}

	var resp struct {
		Success       bool   `json:"success"`
		Status        string `json:"status"`
		TransactionID string `json:"transactionId"`
		ReferenceID   string `json:"referenceId"`
		UTR           string `json:"utr"`
		Message       string `json:"message"`
	}
	if err := c.post("/v1/transfers", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &TransferError{Message: resp.Message}
	}

	return &TransferResult{
		Status:               resp.Status,
		TransactionID:        resp.TransactionID,
		ReferenceID:          resp.ReferenceID,
		Message:              resp.Message,
		UTR:                  resp.UTR,
		VPAAddress:           vpa.Address,
		VPAAccountHolderName: vpa.AccountHolderName,
	}, nil
}

// Payout runs the full two-step protocol for one attempt: validate, resolve
// the VPA (or reuse the cached one), then transfer. A failure at any step is
// terminal for the attempt; retrying is a human decision.
func (c *Client) Payout(req Request) (*TransferResult, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	vpa := req.CachedVPA
	resolvedVia := ResolvedViaCache
	if vpa == nil || vpa.Address == "" {
		vpa, err = c.ResolveVPA(phone, req.ReferenceID)
		if err != nil {
			return nil, err
		}
		resolvedVia = ResolvedViaLive
	}

	note := req.Note
	if note == "" {
		note = "mystery box reward"
	}
	result, err := c.Transfer(req.Amount, vpa, req.BeneficiaryName, req.ReferenceID, note)
	if err != nil {
		return nil, err
	}
	result.ResolvedVia = resolvedVia
	return result, nil
}

func (c *Client) post(path string, payload map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("payout request marshal failed: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("payout request build failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-Id", c.clientID)
	httpReq.Header.Set("X-Client-Secret", c.clientSecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payout request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("payout response read failed: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("payout provider returned invalid JSON (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
