package database

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Peluchemoreno/esti-mate-billing/internal/adapter/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/config"
	domainRepo "github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/messaging"
)

// Repositories holds all repository instances
type Repositories struct {
	BillingAccount domainRepo.BillingAccountRepository
	EventLedger    domainRepo.EventLedgerRepository
	Idempotency    domainRepo.IdempotencyRepository
	AccountEvents  domainRepo.AccountEventPublisher
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB, rdb redis.UniversalClient, cfg *config.BillingConfig, logger *zap.Logger) *Repositories {
	return &Repositories{
		BillingAccount: repository.NewBillingAccountRepository(db, logger),
		EventLedger:    repository.NewEventLedgerRepository(db, logger, cfg.EventRetention),
		Idempotency:    repository.NewIdempotencyRepository(rdb, logger),
		AccountEvents:  repository.NewAccountEventPublisher(messaging.NewRedisBus(rdb)),
	}
}
