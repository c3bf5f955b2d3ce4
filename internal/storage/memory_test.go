package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
)

func newTestCustomer(t *testing.T, store *MemoryStore) *models.CustomerSession {
	t.Helper()
	customer, err := store.CreateCustomer(&models.CustomerRegistration{
		Name:      "Ramesh Kumar",
		Phone:     "9876543210",
		VehicleNo: "DL 01 AB 1234",
	}, "DL01AB1234")
	require.NoError(t, err)
	return customer
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	customer := newTestCustomer(t, store)

	assert.Equal(t, "CUS00001", customer.CustomerID)
	assert.Equal(t, "DL01AB1234", customer.VehicleNumber)
	assert.Nil(t, customer.RewardAmount)
	assert.False(t, customer.Verified)
	assert.False(t, customer.AlreadyPlayed)

	got, err := store.GetCustomer(customer.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, customer, got)

	_, err = store.GetCustomer("CUS99999")
	assert.Error(t, err)
}

func TestMemoryStoreUpdateReward(t *testing.T) {
	store := NewMemoryStore()
	customer := newTestCustomer(t, store)

	require.NoError(t, store.UpdateReward(customer.CustomerID, 5))

	got, err := store.GetCustomer(customer.CustomerID)
	require.NoError(t, err)
	require.NotNil(t, got.RewardAmount)
	assert.Equal(t, 5, *got.RewardAmount)
	// Reward updates never touch the verified flag
	assert.False(t, got.Verified)
}

func TestMemoryStoreMarkVerified(t *testing.T) {
	store := NewMemoryStore()
	customer := newTestCustomer(t, store)
	require.NoError(t, store.UpdateReward(customer.CustomerID, 5))

	require.NoError(t, store.MarkVerified(customer.CustomerID))

	got, err := store.GetCustomer(customer.CustomerID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	// Verification never touches the amount
	require.NotNil(t, got.RewardAmount)
	assert.Equal(t, 5, *got.RewardAmount)
}

func TestMemoryStoreMarkVerifiedByVehicle(t *testing.T) {
	store := NewMemoryStore()
	customer := newTestCustomer(t, store)

	require.NoError(t, store.MarkVerifiedByVehicle("DL01AB1234"))

	got, err := store.GetCustomer(customer.CustomerID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	assert.Error(t, store.MarkVerifiedByVehicle("MH12DE1433"))
}

func TestMemoryStoreMarkAlreadyPlayed(t *testing.T) {
	store := NewMemoryStore()
	customer := newTestCustomer(t, store)

	require.NoError(t, store.MarkAlreadyPlayed(customer.CustomerID))

	got, err := store.GetCustomer(customer.CustomerID)
	require.NoError(t, err)
	assert.True(t, got.AlreadyPlayed)
}

func TestMemoryStoreDeleteExpired(t *testing.T) {
	store := NewMemoryStore()
	stale := newTestCustomer(t, store)

	fresh, err := store.CreateCustomer(&models.CustomerRegistration{
		Name:      "Sita Devi",
		Phone:     "9123456780",
		VehicleNo: "MH12DE1433",
	}, "MH12DE1433")
	require.NoError(t, err)

	// Age the first session past the cutoff
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)

	removed, err := store.DeleteExpired(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.ActiveCount())

	_, err = store.GetCustomer(stale.CustomerID)
	assert.Error(t, err)
	// The vehicle index entry is gone too
	assert.Error(t, store.MarkVerifiedByVehicle("DL01AB1234"))

	_, err = store.GetCustomer(fresh.CustomerID)
	assert.NoError(t, err)
}
