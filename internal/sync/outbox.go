package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fieldworks/sitereport/internal/models"
)

// Store persists queued mutations across process restarts. Items are
// replayed in enqueue (ID) order.
type Store interface {
	Enqueue(item *models.OutboxItem) error
	Pending() ([]models.OutboxItem, error)
	MarkDone(id uint) error
	MarkFailed(id uint, attemptErr error) error
	PendingCount() (int64, error)
}

// GormStore backs the outbox with the local database so the queue
// survives restarts.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a database-backed outbox store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Enqueue appends an item to the queue
func (s *GormStore) Enqueue(item *models.OutboxItem) error {
	item.EnqueuedAt = time.Now().UTC()
	item.Status = models.OutboxStatusPending
	if err := s.db.Create(item).Error; err != nil {
		return fmt.Errorf("failed to enqueue outbox item: %w", err)
	}
	return nil
}

// Pending returns unsent items in enqueue order
func (s *GormStore) Pending() ([]models.OutboxItem, error) {
	var items []models.OutboxItem
	err := s.db.Where("status = ?", models.OutboxStatusPending).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load outbox: %w", err)
	}
	return items, nil
}

// MarkDone flags an item as replayed
func (s *GormStore) MarkDone(id uint) error {
	return s.db.Model(&models.OutboxItem{}).
		Where("id = ?", id).
		Update("status", models.OutboxStatusDone).Error
}

// MarkFailed records a failed replay attempt; the item stays pending
func (s *GormStore) MarkFailed(id uint, attemptErr error) error {
	msg := attemptErr.Error()
	return s.db.Model(&models.OutboxItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}

// PendingCount returns the queue depth
func (s *GormStore) PendingCount() (int64, error) {
	var count int64
	err := s.db.Model(&models.OutboxItem{}).
		Where("status = ?", models.OutboxStatusPending).
		Count(&count).Error
	return count, err
}

// NewItem builds an outbox item carrying a full entity snapshot. IDs
// are caller-assigned UUIDs, so replaying the same item twice is an
// upsert no-op on the remote side.
func NewItem(entity models.SyncableEntity, operation string) (*models.OutboxItem, error) {
	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", entity.GetEntityType(), err)
	}
	return &models.OutboxItem{
		ResourceType: entity.GetEntityType(),
		ResourceID:   entity.GetEntityID(),
		Operation:    operation,
		Payload:      payload,
	}, nil
}
