package postgres

import (
	"context"
	"encoding/json"
	"time"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// queueRepository implements the repository.QueueRepository interface.
type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository is the constructor for queueRepository.
func NewQueueRepository(db *gorm.DB) repository.QueueRepository {
	return &queueRepository{
		db: db,
	}
}

// Enqueue inserts a pending entry and returns its id.
func (repo *queueRepository) Enqueue(ctx context.Context, payload json.RawMessage) (int64, error) {
	entryM := &model.QueueEntryModel{
		Payload: []byte(payload),
		Status:  string(entity.QueueStatusPending),
	}

	if err := repo.db.WithContext(ctx).Create(entryM).Error; err != nil {
		return 0, domainerrors.NewStorageWriteError(err, "failed to enqueue notification")
	}

	return entryM.ID, nil
}

// ClaimBatch atomically claims up to limit oldest pending entries. The claim
// and the selection happen in one statement; FOR UPDATE SKIP LOCKED keeps
// concurrent workers from blocking on or double-claiming the same rows.
func (repo *queueRepository) ClaimBatch(ctx context.Context, limit int) ([]*entity.QueueEntry, error) {
	if limit <= 0 {
		return []*entity.QueueEntry{}, nil
	}

	query := `
		UPDATE push_queue
		SET status = ?, claimed_at = NOW(), attempts = attempts + 1
		WHERE id IN (
		  SELECT id FROM push_queue
		  WHERE status = ?
		  ORDER BY id ASC
		  LIMIT ?
		  FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payload, status, attempts, created_at, claimed_at`

	var entryModels []*model.QueueEntryModel
	if err := repo.db.WithContext(ctx).
		Raw(query, string(entity.QueueStatusClaimed), string(entity.QueueStatusPending), limit).
		Scan(&entryModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to claim queue batch")
	}

	entries := make([]*entity.QueueEntry, 0, len(entryModels))
	for _, entryM := range entryModels {
		entries = append(entries, toQueueEntryDomain(entryM))
	}

	return entries, nil
}

// Complete deletes the entry. A missing id is a no-op.
func (repo *queueRepository) Complete(ctx context.Context, id int64) error {
	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.QueueEntryModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to complete queue entry")
	}

	return nil
}

// ReclaimStale returns claimed entries whose claim is older than olderThan to
// pending so another worker can pick them up.
func (repo *queueRepository) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := repo.db.WithContext(ctx).
		Model(&model.QueueEntryModel{}).
		Where("status = ? AND claimed_at < ?", string(entity.QueueStatusClaimed), cutoff).
		Updates(map[string]any{
			"status":     string(entity.QueueStatusPending),
			"claimed_at": nil,
		})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to reclaim stale queue entries")
	}

	return result.RowsAffected, nil
}

// toQueueEntryDomain converts a GORM QueueEntryModel to a domain QueueEntry entity.
func toQueueEntryDomain(data *model.QueueEntryModel) *entity.QueueEntry {
	if data == nil {
		return nil
	}

	return &entity.QueueEntry{
		ID:        data.ID,
		Payload:   json.RawMessage(data.Payload),
		Status:    entity.QueueStatus(data.Status),
		Attempts:  data.Attempts,
		CreatedAt: data.CreatedAt,
		ClaimedAt: data.ClaimedAt,
	}
}
