package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
	"github.com/mysterybox-promo/mysterybox-backend/internal/payout"
	"github.com/mysterybox-promo/mysterybox-backend/internal/routes"
	"github.com/mysterybox-promo/mysterybox-backend/internal/services"
	"github.com/mysterybox-promo/mysterybox-backend/internal/storage"
)

const adminKey = "test-admin-key"

// memoryLedger is a stateful in-process stand-in for the webhook ledger.
type memoryLedger struct {
	entries []models.ContestEntry
	logs    []models.TransactionLog
}

func (m *memoryLedger) GetByVehicle(vehicleNo string) (*models.ContestEntry, error) {
	for i := range m.entries {
		if m.entries[i].VehicleNumber == vehicleNo {
			return &m.entries[i], nil
		}
	}
	return nil, nil
}

func (m *memoryLedger) GetTodayByVehicle(vehicleNo string) (*models.ContestEntry, error) {
	today := time.Now()
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.VehicleNumber == vehicleNo && e.EnteredOn(today) {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (m *memoryLedger) GetAll() ([]models.ContestEntry, error) {
	return m.entries, nil
}

func (m *memoryLedger) AddEntry(entry *models.ContestEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryLedger) UpdateReward(vehicleNo string, amount int) error {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].VehicleNumber == vehicleNo {
			m.entries[i].PrizeAmount = amount
			return nil
		}
	}
	return errors.New("no matching row")
}

func (m *memoryLedger) VerifyAndSetAmount(vehicleNo string, amount int, verifierName string, verifiedAt time.Time) error {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].VehicleNumber == vehicleNo {
			m.entries[i].Verified = true
			m.entries[i].PrizeAmount = amount
			m.entries[i].VerifiedBy = verifierName
			m.entries[i].VerifiedAt = &verifiedAt
			return nil
		}
	}
	return errors.New("no matching row")
}

func (m *memoryLedger) RemoveFromVerification(vehicleNo string) error {
	return m.UpdateReward(vehicleNo, 0)
}

func (m *memoryLedger) GetVerifiedCount() (int, error) {
	count := 0
	for i := range m.entries {
		if m.entries[i].Verified {
			count++
		}
	}
	return count, nil
}

func (m *memoryLedger) GetVerifiedCountToday() (int, error) {
	today := time.Now()
	count := 0
	for i := range m.entries {
		if m.entries[i].Verified && m.entries[i].EnteredOn(today) {
			count++
		}
	}
	return count, nil
}

func (m *memoryLedger) GetTotalVerifiedAmount(vehicleNo string) (int, error) {
	total := 0
	for i := range m.entries {
		if m.entries[i].VehicleNumber == vehicleNo && m.entries[i].Verified {
			total += m.entries[i].PrizeAmount
		}
	}
	return total, nil
}

func (m *memoryLedger) LogTransaction(entry *models.TransactionLog) error {
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memoryLedger) GetTransactionByPhone(phone string) (*ledger.VPAInfo, error) {
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].PhoneNumber == phone && m.logs[i].Status == models.TransactionStatusSuccess {
			return &ledger.VPAInfo{
				Address:           m.logs[i].VPAAddress,
				AccountHolderName: m.logs[i].VPAAccountHolderName,
			}, nil
		}
	}
	return nil, nil
}

// newPayoutServer spins up a fake disbursement provider that always pays.
func newPayoutServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/vpa/resolve", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":           true,
			"vpaAddress":        "ramesh@upi",
			"accountHolderName": "Ramesh Kumar",
		})
	})
	mux.HandleFunc("/v1/transfers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       true,
			"status":        "SUCCESS",
			"transactionId": "TXN123",
			"message":       "transfer accepted",
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T, ldg ledger.Ledger, provider services.PayoutProvider) (*fiber.App, storage.Store) {
	t.Helper()
	t.Setenv("ADMIN_API_KEY", adminKey)

	store := storage.NewMemoryStore()
	verifier := services.NewVerificationService(ldg, provider, store, nil)

	app := fiber.New()
	routes.SetupRoutes(app, store, ldg, verifier)
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": adminKey}
}

func TestRegisterVerifyPayoutFlow(t *testing.T) {
	ldg := &memoryLedger{}
	server := newPayoutServer(t)
	provider := payout.NewClient(server.URL, "id", "secret")
	app, _ := newTestApp(t, ldg, provider)

	// Register with a spaced plate
	resp, body := doJSON(t, app, http.MethodPost, "/api/customers", map[string]string{
		"name":       "Ramesh Kumar",
		"phone":      "9876543210",
		"vehicle_no": "DL 01 AB 1234",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, body["already_played"])

	customer := body["customer"].(map[string]interface{})
	customerID := customer["customer_id"].(string)
	assert.Equal(t, "DL01AB1234", customer["vehicle_number"])

	// Open the box: prize 5
	resp, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/customers/%s/reward", customerID), map[string]int{
		"amount": 5,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Poll before verification
	resp, body = doJSON(t, app, http.MethodGet, "/api/verify/DL01AB1234/status", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, false, body["verified"])

	// Employee verifies
	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/verify/DL01AB1234", map[string]string{
		"verified_by": "Suresh",
	}, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "success", body["paymentStatus"])
	assert.Equal(t, "DL01AB1234", body["vehicleNumber"])
	assert.Equal(t, float64(5), body["amount"])

	// Ledger state after the flow
	entry, err := ldg.GetTodayByVehicle("DL01AB1234")
	require.NoError(t, err)
	assert.True(t, entry.Verified)
	assert.Equal(t, 5, entry.PrizeAmount)
	assert.Equal(t, "Suresh", entry.VerifiedBy)

	require.Len(t, ldg.logs, 1)
	assert.Equal(t, models.TransactionStatusSuccess, ldg.logs[0].Status)
	assert.Equal(t, "TXN123", ldg.logs[0].TransactionID)

	// Poll after verification
	resp, body = doJSON(t, app, http.MethodGet, "/api/verify/DL01AB1234/status", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, float64(5), body["amount"])

	// Stats reflect the verification
	resp, body = doJSON(t, app, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["verified_count"])
	assert.Equal(t, float64(1), body["verified_count_today"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/stats/DL01AB1234", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["total"])
}

func TestVerifyUnknownVehicleReturns404(t *testing.T) {
	app, _ := newTestApp(t, &memoryLedger{}, nil)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/verify/MH12DE1433", map[string]string{
		"verified_by": "Suresh",
	}, adminHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyInvalidVehicleReturns400(t *testing.T) {
	app, _ := newTestApp(t, &memoryLedger{}, nil)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/verify/X", map[string]string{
		"verified_by": "Suresh",
	}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	app, _ := newTestApp(t, &memoryLedger{}, nil)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/verify/DL01AB1234", map[string]string{
		"verified_by": "Suresh",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/admin/pending", nil, map[string]string{
		"X-Admin-Key": "wrong-key",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAlreadyPlayedToday(t *testing.T) {
	ldg := &memoryLedger{
		entries: []models.ContestEntry{{
			Name:          "Ramesh Kumar",
			PhoneNumber:   "9876543210",
			VehicleNumber: "DL01AB1234",
			PrizeAmount:   5,
			EnteredAt:     time.Now(),
		}},
	}
	app, _ := newTestApp(t, ldg, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/customers", map[string]string{
		"name":       "Ramesh Kumar",
		"phone":      "9876543210",
		"vehicle_no": "DL01AB1234",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["already_played"])
}

func TestRewardAssignmentIsImmutable(t *testing.T) {
	app, _ := newTestApp(t, &memoryLedger{}, nil)

	_, body := doJSON(t, app, http.MethodPost, "/api/customers", map[string]string{
		"name":       "Sita Devi",
		"phone":      "9123456780",
		"vehicle_no": "MH12DE1433",
	}, nil)
	customerID := body["customer"].(map[string]interface{})["customer_id"].(string)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/customers/"+customerID+"/reward", map[string]int{"amount": 10}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/customers/"+customerID+"/reward", map[string]int{"amount": 50}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSoftRemoveExcludesFromPending(t *testing.T) {
	ldg := &memoryLedger{
		entries: []models.ContestEntry{{
			Name:          "Ramesh Kumar",
			PhoneNumber:   "9876543210",
			VehicleNumber: "DL01AB1234",
			PrizeAmount:   5,
			EnteredAt:     time.Now(),
		}},
	}
	app, _ := newTestApp(t, ldg, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/api/admin/pending", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/admin/verify/DL01AB1234", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Row survives with prize 0, but leaves the queue
	entry, err := ldg.GetTodayByVehicle("DL01AB1234")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.PrizeAmount)

	resp, body = doJSON(t, app, http.MethodGet, "/api/admin/pending", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
}

func TestLedgerNotConfiguredDegradation(t *testing.T) {
	// An empty webhook URL makes every ledger call report "not configured"
	app, _ := newTestApp(t, ledger.NewWebhookLedger(""), nil)

	// Stats degrade to zeros instead of failing
	resp, body := doJSON(t, app, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["verified_count"])
	assert.Equal(t, float64(0), body["verified_count_today"])
	assert.Equal(t, true, body["degraded"])

	// Registration still works; the ledger check is skipped
	resp, body = doJSON(t, app, http.MethodPost, "/api/customers", map[string]string{
		"name":       "Ramesh Kumar",
		"phone":      "9876543210",
		"vehicle_no": "DL01AB1234",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := body["customer"].(map[string]interface{})["customer_id"].(string)

	// Writing the reward needs the ledger: 503
	resp, _ = doJSON(t, app, http.MethodPost, "/api/customers/"+customerID+"/reward", map[string]int{"amount": 5}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Verification needs the ledger too
	resp, _ = doJSON(t, app, http.MethodPost, "/api/admin/verify/DL01AB1234", map[string]string{
		"verified_by": "Suresh",
	}, adminHeaders())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
