package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
)

// DatabaseLedger is the Postgres implementation of the ledger contract. It
// preserves the webhook's query semantics (most-recent-row updates, soft
// removes, all-time verified totals) and additionally closes the concurrent
// double-verification race with row locking, which the spreadsheet cannot
// do.
type DatabaseLedger struct {
	db *gorm.DB
}

// NewDatabaseLedger creates a ledger backed by the given GORM connection.
func NewDatabaseLedger(db *gorm.DB) *DatabaseLedger {
	return &DatabaseLedger{db: db}
}

func (l *DatabaseLedger) GetByVehicle(vehicle string) (*models.ContestEntry, error) {
	var entry models.ContestEntry
	err := l.db.Where("vehicle_number = ?", vehicle).
		Order("entered_at asc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger getByVehicle failed: %w", err)
	}
	return &entry, nil
}

func (l *DatabaseLedger) GetTodayByVehicle(vehicle string) (*models.ContestEntry, error) {
	start, end := todayBounds()
	var entry models.ContestEntry
	err := l.db.Where("vehicle_number = ? AND entered_at >= ? AND entered_at < ?", vehicle, start, end).
		Order("entered_at desc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger getTodayByVehicle failed: %w", err)
	}
	return &entry, nil
}

func (l *DatabaseLedger) GetAll() ([]models.ContestEntry, error) {
	var entries []models.ContestEntry
	if err := l.db.Order("entered_at asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("ledger getAll failed: %w", err)
	}
	return entries, nil
}

func (l *DatabaseLedger) AddEntry(entry *models.ContestEntry) error {
	if entry.EnteredAt.IsZero() {
		entry.EnteredAt = time.Now()
	}
	if err := l.db.Create(entry).Error; err != nil {
		return fmt.Errorf("ledger add failed: %w", err)
	}
	return nil
}

func (l *DatabaseLedger) UpdateReward(vehicle string, amount int) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		entry, err := lockLatest(tx, vehicle)
		if err != nil {
			return err
		}
		return tx.Model(entry).Update("prize_amount", amount).Error
	})
}

// VerifyAndSetAmount marks the most recent row verified inside a transaction
// holding a row lock, so two employees verifying the same vehicle at once
// serialize instead of both initiating a payout.
func (l *DatabaseLedger) VerifyAndSetAmount(vehicle string, amount int, verifierName string, verifiedAt time.Time) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		entry, err := lockLatest(tx, vehicle)
		if err != nil {
			return err
		}
		return tx.Model(entry).Updates(map[string]interface{}{
			"verified":     true,
			"prize_amount": amount,
			"verified_by":  verifierName,
			"verified_at":  verifiedAt,
		}).Error
	})
}

func (l *DatabaseLedger) RemoveFromVerification(vehicle string) error {
	return l.UpdateReward(vehicle, 0)
}

func (l *DatabaseLedger) GetVerifiedCount() (int, error) {
	var count int64
	err := l.db.Model(&models.ContestEntry{}).
		Where("verified = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("ledger getVerifiedCount failed: %w", err)
	}
	return int(count), nil
}

func (l *DatabaseLedger) GetVerifiedCountToday() (int, error) {
	start, end := todayBounds()
	var count int64
	err := l.db.Model(&models.ContestEntry{}).
		Where("verified = ? AND entered_at >= ? AND entered_at < ?", true, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("ledger getVerifiedCountToday failed: %w", err)
	}
	return int(count), nil
}

func (l *DatabaseLedger) GetTotalVerifiedAmount(vehicle string) (int, error) {
	var total int64
	err := l.db.Model(&models.ContestEntry{}).
		Select("COALESCE(SUM(prize_amount), 0)").
		Where("vehicle_number = ? AND verified = ?", vehicle, true).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("ledger getTotalVerifiedAmount failed: %w", err)
	}
	return int(total), nil
}

func (l *DatabaseLedger) LogTransaction(entry *models.TransactionLog) error {
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now()
	}
	if err := l.db.Create(entry).Error; err != nil {
		return fmt.Errorf("ledger logTransaction failed: %w", err)
	}
	return nil
}

func (l *DatabaseLedger) GetTransactionByPhone(phone string) (*VPAInfo, error) {
	var logEntry models.TransactionLog
	err := l.db.Where("phone_number = ? AND status = ?", phone, models.TransactionStatusSuccess).
		Order("logged_at desc").
		First(&logEntry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger getTransactionByPhone failed: %w", err)
	}
	if logEntry.VPAAddress == "" {
		return nil, nil
	}
	return &VPAInfo{
		Address:           logEntry.VPAAddress,
		AccountHolderName: logEntry.VPAAccountHolderName,
	}, nil
}

// lockLatest selects the most recent row for the vehicle FOR UPDATE.
func lockLatest(tx *gorm.DB, vehicle string) (*models.ContestEntry, error) {
	var entry models.ContestEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vehicle_number = ?", vehicle).
		Order("entered_at desc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no ledger entry for vehicle %s", vehicle)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger lock failed: %w", err)
	}
	return &entry, nil
}

func todayBounds() (time.Time, time.Time) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}
