package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
)

// WebhookLedger talks to the spreadsheet-backed webhook: a single endpoint
// that takes commands as a POST body `action` field and queries as a GET
// `action` query parameter. The spreadsheet is global mutable state with no
// transactions, so every write here is last-write-wins.
type WebhookLedger struct {
	baseURL string
	client  *http.Client
}

// NewWebhookLedger creates a ledger client for the given webhook URL. An
// empty URL is allowed; every call then fails with ErrNotConfigured so the
// service can still boot in degraded mode.
func NewWebhookLedger(baseURL string) *WebhookLedger {
	return &WebhookLedger{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// wireEntry is the row shape the webhook returns. The spreadsheet stores
// booleans as Yes/No strings and may hand numbers back as strings, so the
// wire type is looser than the model.
type wireEntry struct {
	Name                  string      `json:"name"`
	Number                string      `json:"number"`
	VehicleNumber         string      `json:"vehicleNumber"`
	Prize                 json.Number `json:"prize"`
	Verified              string      `json:"verified"`
	VerifiedBy            string      `json:"verifiedBy"`
	VerificationTimestamp string      `json:"verificationTimestamp"`
	Timestamp             string      `json:"timestamp"`
}

func (w *wireEntry) toModel() *models.ContestEntry {
	entry := &models.ContestEntry{
		Name:          w.Name,
		PhoneNumber:   w.Number,
		VehicleNumber: w.VehicleNumber,
		Verified:      strings.EqualFold(w.Verified, "Yes"),
		VerifiedBy:    w.VerifiedBy,
	}
	if prize, err := w.Prize.Int64(); err == nil {
		entry.PrizeAmount = int(prize)
	}
	if ts, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
		entry.EnteredAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, w.VerificationTimestamp); err == nil {
		entry.VerifiedAt = &ts
	}
	return entry
}

type entryResponse struct {
	Found bool       `json:"found"`
	Entry *wireEntry `json:"entry"`
}

type commandResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// GetByVehicle returns the oldest row for the vehicle.
func (l *WebhookLedger) GetByVehicle(vehicle string) (*models.ContestEntry, error) {
	params := url.Values{"vehicleNumber": {vehicle}}
	var resp entryResponse
	if err := l.get("getByVehicle", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Found || resp.Entry == nil {
		return nil, nil
	}
	return resp.Entry.toModel(), nil
}

// GetTodayByVehicle returns the most recent row for the vehicle entered on
// the caller's current day. The day is passed explicitly so the webhook does
// not depend on the spreadsheet's timezone.
func (l *WebhookLedger) GetTodayByVehicle(vehicle string) (*models.ContestEntry, error) {
	params := url.Values{
		"vehicleNumber": {vehicle},
		"date":          {time.Now().Format("2006-01-02")},
	}
	var resp entryResponse
	if err := l.get("getTodayByVehicle", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Found || resp.Entry == nil {
		return nil, nil
	}
	return resp.Entry.toModel(), nil
}

func (l *WebhookLedger) GetAll() ([]models.ContestEntry, error) {
	var resp struct {
		Entries []wireEntry `json:"entries"`
	}
	if err := l.get("getAll", nil, &resp); err != nil {
		return nil, err
	}
	entries := make([]models.ContestEntry, 0, len(resp.Entries))
	for i := range resp.Entries {
		entries = append(entries, *resp.Entries[i].toModel())
	}
	return entries, nil
}

func (l *WebhookLedger) AddEntry(entry *models.ContestEntry) error {
	verified := "No"
	if entry.Verified {
		verified = "Yes"
	}
	return l.post(map[string]interface{}{
		"action":        "add",
		"name":          entry.Name,
		"number":        entry.PhoneNumber,
		"prize":         entry.PrizeAmount,
		"vehicleNumber": entry.VehicleNumber,
		"timestamp":     entry.EnteredAt.Format(time.RFC3339),
		"verified":      verified,
	})
}

func (l *WebhookLedger) UpdateReward(vehicle string, amount int) error {
	return l.post(map[string]interface{}{
		"action":        "updateReward",
		"vehicleNumber": vehicle,
		"prize":         amount,
	})
}

func (l *WebhookLedger) VerifyAndSetAmount(vehicle string, amount int, verifierName string, verifiedAt time.Time) error {
	return l.post(map[string]interface{}{
		"action":                "verifyAndSetAmount",
		"vehicleNumber":         vehicle,
		"amount":                amount,
		"verifierName":          verifierName,
		"verificationTimestamp": verifiedAt.Format(time.RFC3339),
	})
}

// RemoveFromVerification soft-removes the entry by setting prize to 0. The
// row itself is kept for audit history.
func (l *WebhookLedger) RemoveFromVerification(vehicle string) error {
	return l.UpdateReward(vehicle, 0)
}

func (l *WebhookLedger) GetVerifiedCount() (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := l.get("getVerifiedCount", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// GetVerifiedCountToday counts verified rows entered today. As with
// GetTodayByVehicle, the day travels explicitly so the webhook does not
// depend on the spreadsheet's timezone.
func (l *WebhookLedger) GetVerifiedCountToday() (int, error) {
	params := url.Values{"date": {time.Now().Format("2006-01-02")}}
	var resp struct {
		Count int `json:"count"`
	}
	if err := l.get("getVerifiedCountToday", params, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (l *WebhookLedger) GetTotalVerifiedAmount(vehicle string) (int, error) {
	params := url.Values{"vehicleNumber": {vehicle}}
	var resp struct {
		Total int `json:"total"`
	}
	if err := l.get("getTotalVerifiedAmount", params, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// LogTransaction appends one payout attempt to the log sheet. The webhook
// auto-creates the sheet with a fixed 20-column header on first use, so the
// field set here must stay in sync with it.
func (l *WebhookLedger) LogTransaction(entry *models.TransactionLog) error {
	return l.post(map[string]interface{}{
		"action":               "logTransaction",
		"vehicleNumber":        entry.VehicleNumber,
		"customerName":         entry.CustomerName,
		"phoneNumber":          entry.PhoneNumber,
		"amount":               entry.Amount,
		"currency":             "INR",
		"referenceId":          entry.ReferenceID,
		"transactionId":        entry.TransactionID,
		"status":               entry.Status,
		"vpaAddress":           entry.VPAAddress,
		"vpaAccountHolderName": entry.VPAAccountHolderName,
		"beneficiaryName":      entry.BeneficiaryName,
		"transferMode":         entry.TransferMode,
		"utr":                  entry.UTR,
		"providerStatus":       entry.ProviderStatus,
		"providerMessage":      entry.ProviderMessage,
		"errorMessage":         entry.ErrorMessage,
		"note":                 entry.Note,
		"resolvedVia":          entry.ResolvedVia,
		"verifiedBy":           entry.VerifiedBy,
		"timestamp":            entry.LoggedAt.Format(time.RFC3339),
	})
}

func (l *WebhookLedger) GetTransactionByPhone(phone string) (*VPAInfo, error) {
	params := url.Values{"phoneNumber": {phone}}
	var resp struct {
		Found                bool   `json:"found"`
		VPAAddress           string `json:"vpaAddress"`
		VPAAccountHolderName string `json:"vpaAccountHolderName"`
	}
	if err := l.get("getTransactionByPhone", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Found || resp.VPAAddress == "" {
		return nil, nil
	}
	return &VPAInfo{
		Address:           resp.VPAAddress,
		AccountHolderName: resp.VPAAccountHolderName,
	}, nil
}

// get performs a query request and decodes the JSON response into out.
func (l *WebhookLedger) get(action string, params url.Values, out interface{}) error {
	if l.baseURL == "" {
		return ErrNotConfigured
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("action", action)

	resp, err := l.client.Get(l.baseURL + "?" + params.Encode())
	if err != nil {
		return fmt.Errorf("ledger %s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledger %s read failed: %w", action, err)
	}
	if err := checkConfigured(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ledger %s returned invalid JSON: %w", action, err)
	}
	return nil
}

// post performs a command request. The action travels in the JSON body.
func (l *WebhookLedger) post(payload map[string]interface{}) error {
	if l.baseURL == "" {
		return ErrNotConfigured
	}
	action, _ := payload["action"].(string)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ledger %s marshal failed: %w", action, err)
	}

	resp, err := l.client.Post(l.baseURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger %s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledger %s read failed: %w", action, err)
	}
	if err := checkConfigured(respBody); err != nil {
		return err
	}

	var result commandResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("ledger %s returned invalid JSON: %w", action, err)
	}
	if !result.Success {
		return fmt.Errorf("ledger %s rejected: %s", action, result.Error)
	}
	return nil
}

// checkConfigured distinguishes the webhook's HTML setup page from real
// responses. An undeployed Apps Script answers every request with HTML, so a
// body starting with '<' means "not configured", not a parse error.
func checkConfigured(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return ErrNotConfigured
	}
	return nil
}
