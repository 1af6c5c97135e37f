package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
)

// BillingAccount represents the billing_accounts table
type BillingAccount struct {
	AccountID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                   string     `gorm:"type:varchar(320);not null;uniqueIndex"`
	ExternalCustomerRef     *string    `gorm:"type:varchar(255);uniqueIndex"`
	ExternalSubscriptionRef *string    `gorm:"type:varchar(255);index"`
	Plan                    string     `gorm:"type:varchar(20);not null;default:'free'"`
	Status                  string     `gorm:"type:varchar(20);not null;default:'disabled'"`
	PriceID                 *string    `gorm:"type:varchar(255)"`
	ProductID               *string    `gorm:"type:varchar(255)"`
	CurrentPeriodStart      *time.Time
	CurrentPeriodEnd        *time.Time
	TrialEnd                *time.Time
	CancelAtPeriodEnd       bool `gorm:"not null;default:false"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// TableName specifies the table name
func (BillingAccount) TableName() string {
	return "billing_accounts"
}

// ToEntity converts the row to the domain record
func (m *BillingAccount) ToEntity() *entity.BillingAccount {
	return &entity.BillingAccount{
		AccountID:               m.AccountID,
		Email:                   m.Email,
		ExternalCustomerRef:     m.ExternalCustomerRef,
		ExternalSubscriptionRef: m.ExternalSubscriptionRef,
		Plan:                    entity.Plan(m.Plan),
		Status:                  entity.Status(m.Status),
		PriceID:                 m.PriceID,
		ProductID:               m.ProductID,
		CurrentPeriodStart:      utc(m.CurrentPeriodStart),
		CurrentPeriodEnd:        utc(m.CurrentPeriodEnd),
		TrialEnd:                utc(m.TrialEnd),
		CancelAtPeriodEnd:       m.CancelAtPeriodEnd,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

// BillingAccountFromEntity converts the domain record to a row
func BillingAccountFromEntity(e *entity.BillingAccount) *BillingAccount {
	return &BillingAccount{
		AccountID:               e.AccountID,
		Email:                   e.Email,
		ExternalCustomerRef:     e.ExternalCustomerRef,
		ExternalSubscriptionRef: e.ExternalSubscriptionRef,
		Plan:                    string(e.Plan),
		Status:                  string(e.Status),
		PriceID:                 e.PriceID,
		ProductID:               e.ProductID,
		CurrentPeriodStart:      e.CurrentPeriodStart,
		CurrentPeriodEnd:        e.CurrentPeriodEnd,
		TrialEnd:                e.TrialEnd,
		CancelAtPeriodEnd:       e.CancelAtPeriodEnd,
		CreatedAt:               e.CreatedAt,
		UpdatedAt:               e.UpdatedAt,
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
