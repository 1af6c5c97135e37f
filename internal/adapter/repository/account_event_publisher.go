package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/messaging"
)

// AccountUpdatedChannel carries AccountUpdatedMessage payloads.
const AccountUpdatedChannel = "billing.account.updated"

// AccountUpdatedMessage is published after every billing record change so
// services caching entitlement can refresh.
type AccountUpdatedMessage struct {
	AccountID string    `json:"account_id"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
}

type accountEventPublisher struct {
	bus messaging.Bus
}

// NewAccountEventPublisher publishes record changes on the message bus.
func NewAccountEventPublisher(bus messaging.Bus) repository.AccountEventPublisher {
	return &accountEventPublisher{bus: bus}
}

func (p *accountEventPublisher) PublishAccountUpdated(ctx context.Context, account *entity.BillingAccount, reason string) error {
	msg := AccountUpdatedMessage{
		AccountID: account.AccountID.String(),
		Plan:      string(account.Plan),
		Status:    string(account.Status),
		Reason:    reason,
		UpdatedAt: account.UpdatedAt.UTC(),
	}
	if err := p.bus.Publish(ctx, AccountUpdatedChannel, msg); err != nil {
		return fmt.Errorf("failed to publish account update: %w", err)
	}
	return nil
}
