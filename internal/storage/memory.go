package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
)

// MemoryStore holds all session data in memory
type MemoryStore struct {
	customers map[string]*models.CustomerSession
	byVehicle map[string]string // canonical vehicle number -> customer ID

	mu sync.RWMutex

	// Counter for ID generation
	customerCounter int
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]*models.CustomerSession),
		byVehicle: make(map[string]string),
	}
}

func (m *MemoryStore) CreateCustomer(reg *models.CustomerRegistration, vehicleNumber string) (*models.CustomerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.customerCounter++
	now := time.Now()
	customer := &models.CustomerSession{
		CustomerID:    fmt.Sprintf("CUS%05d", m.customerCounter),
		Name:          reg.Name,
		PhoneNumber:   reg.Phone,
		VehicleNumber: vehicleNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	m.customers[customer.CustomerID] = customer
	m.byVehicle[vehicleNumber] = customer.CustomerID
	return customer, nil
}

func (m *MemoryStore) GetCustomer(id string) (*models.CustomerSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customer, exists := m.customers[id]
	if !exists {
		return nil, fmt.Errorf("customer not found")
	}
	return customer, nil
}

func (m *MemoryStore) UpdateReward(id string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, exists := m.customers[id]
	if !exists {
		return fmt.Errorf("customer not found")
	}
	customer.RewardAmount = &amount
	customer.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) MarkVerified(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, exists := m.customers[id]
	if !exists {
		return fmt.Errorf("customer not found")
	}
	customer.Verified = true
	customer.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) MarkVerifiedByVehicle(vehicleNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byVehicle[vehicleNumber]
	if !exists {
		return fmt.Errorf("customer not found")
	}
	customer := m.customers[id]
	customer.Verified = true
	customer.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) MarkAlreadyPlayed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, exists := m.customers[id]
	if !exists {
		return fmt.Errorf("customer not found")
	}
	customer.AlreadyPlayed = true
	customer.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteExpired(olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, customer := range m.customers {
		if customer.CreatedAt.Before(cutoff) {
			delete(m.customers, id)
			if m.byVehicle[customer.VehicleNumber] == id {
				delete(m.byVehicle, customer.VehicleNumber)
			}
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.customers)
}
