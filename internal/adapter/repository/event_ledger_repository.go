package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/model"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
)

type eventLedgerRepository struct {
	db        *gorm.DB
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewEventLedgerRepository creates a ledger whose entries live for retention.
func NewEventLedgerRepository(db *gorm.DB, logger *zap.Logger, retention time.Duration) repository.EventLedgerRepository {
	return &eventLedgerRepository{
		db:        db,
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
}

// Claim inserts the event id with ON CONFLICT DO NOTHING; zero affected rows
// means another delivery got there first.
func (r *eventLedgerRepository) Claim(ctx context.Context, eventID, eventType string) (repository.ClaimResult, error) {
	now := r.now().UTC()
	row := &model.ProcessedEvent{
		EventID:    eventID,
		EventType:  eventType,
		ReceivedAt: now,
		ExpiresAt:  now.Add(r.retention),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		r.logger.Error("Failed to claim webhook event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to claim event %s: %w: %w", eventID, domainErrors.ErrTransientStore, result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ClaimAlreadyClaimed, nil
	}
	return repository.ClaimFirst, nil
}

func (r *eventLedgerRepository) Release(ctx context.Context, eventID string) error {
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.ProcessedEvent{}).Error
	if err != nil {
		r.logger.Error("Failed to release webhook event claim",
			zap.String("event_id", eventID),
			zap.Error(err))
		return fmt.Errorf("failed to release event %s: %w: %w", eventID, domainErrors.ErrTransientStore, err)
	}
	return nil
}

func (r *eventLedgerRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now.UTC()).
		Delete(&model.ProcessedEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge processed events: %w: %w", domainErrors.ErrTransientStore, result.Error)
	}
	return result.RowsAffected, nil
}
