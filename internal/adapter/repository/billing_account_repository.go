package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/model"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
)

type billingAccountRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewBillingAccountRepository creates a new billing account repository
func NewBillingAccountRepository(db *gorm.DB, logger *zap.Logger) repository.BillingAccountRepository {
	return &billingAccountRepository{
		db:     db,
		logger: logger,
	}
}

// NormalizeEmail is the form emails are stored and matched in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func storeError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, domainErrors.ErrTransientStore, err)
}

// writeError keeps unique violations on the customer link apart from
// transient failures; retrying them cannot succeed.
func writeError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to %s: %w: %w", op, domainErrors.ErrCustomerRefConflict, err)
	}
	return storeError(op, err)
}

func (r *billingAccountRepository) first(ctx context.Context, query string, arg interface{}) (*entity.BillingAccount, error) {
	var row model.BillingAccount
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get billing account", zap.String("query", query), zap.Error(err))
		return nil, storeError("get billing account", err)
	}
	return row.ToEntity(), nil
}

func (r *billingAccountRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.BillingAccount, error) {
	return r.first(ctx, "account_id = ?", accountID)
}

func (r *billingAccountRepository) GetByEmail(ctx context.Context, email string) (*entity.BillingAccount, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	return r.first(ctx, "email = ?", email)
}

func (r *billingAccountRepository) GetByCustomerRef(ctx context.Context, customerRef string) (*entity.BillingAccount, error) {
	if customerRef == "" {
		return nil, nil
	}
	return r.first(ctx, "external_customer_ref = ?", customerRef)
}

// EnsureAccount inserts the default record; a concurrent or earlier insert
// for the same account wins and is returned.
func (r *billingAccountRepository) EnsureAccount(ctx context.Context, accountID uuid.UUID, email string) (*entity.BillingAccount, error) {
	row := model.BillingAccountFromEntity(entity.NewBillingAccount(accountID, NormalizeEmail(email)))

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		r.logger.Error("Failed to create billing account",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return nil, storeError("create billing account", err)
	}

	account, err := r.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// the insert was skipped because the email belongs to another account
		return nil, fmt.Errorf("email %s is bound to another account: %w", row.Email, domainErrors.ErrUnknownAccount)
	}
	return account, nil
}

func (r *billingAccountRepository) LinkCustomer(ctx context.Context, accountID uuid.UUID, customerRef string) (string, error) {
	result := r.db.WithContext(ctx).
		Model(&model.BillingAccount{}).
		Where("account_id = ? AND external_customer_ref IS NULL", accountID).
		Update("external_customer_ref", customerRef)
	if result.Error != nil {
		r.logger.Error("Failed to link customer",
			zap.String("account_id", accountID.String()),
			zap.String("customer_id", customerRef),
			zap.Error(result.Error))
		return "", writeError("link customer", result.Error)
	}

	account, err := r.GetByAccountID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", domainErrors.ErrUnknownAccount
	}
	if !account.HasCustomer() {
		return "", fmt.Errorf("customer link for %s not stored: %w", accountID, domainErrors.ErrTransientStore)
	}
	return *account.ExternalCustomerRef, nil
}

func (r *billingAccountRepository) UpdateByAccountID(ctx context.Context, accountID uuid.UUID, m repository.Mutation) (*entity.BillingAccount, bool, error) {
	return r.update(ctx, "account_id = ?", accountID, domainErrors.ErrUnknownAccount, m)
}

func (r *billingAccountRepository) UpdateByCustomerRef(ctx context.Context, customerRef string, m repository.Mutation) (*entity.BillingAccount, bool, error) {
	if customerRef == "" {
		return nil, false, domainErrors.ErrUnlinkedAccount
	}
	return r.update(ctx, "external_customer_ref = ?", customerRef, domainErrors.ErrUnlinkedAccount, m)
}

// update runs a read-modify-write under SELECT ... FOR UPDATE so concurrent
// events for one account serialize on the row.
func (r *billingAccountRepository) update(ctx context.Context, query string, arg interface{}, missing error, m repository.Mutation) (*entity.BillingAccount, bool, error) {
	var (
		out     *entity.BillingAccount
		changed bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.BillingAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(query, arg).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return missing
		}
		if err != nil {
			return err
		}

		current := row.ToEntity()
		next := m(current)
		if next == nil || current.SameState(next) {
			out = current
			return nil
		}

		updated := model.BillingAccountFromEntity(next)
		updated.AccountID = row.AccountID
		updated.CreatedAt = row.CreatedAt
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		out = updated.ToEntity()
		changed = true
		return nil
	})

	if err != nil {
		if errors.Is(err, missing) {
			return nil, false, err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.logger.Warn("Billing account update violates a unique link", zap.String("query", query), zap.Error(err))
			return nil, false, writeError("update billing account", err)
		}
		r.logger.Error("Failed to update billing account", zap.String("query", query), zap.Error(err))
		return nil, false, storeError("update billing account", err)
	}
	return out, changed, nil
}
