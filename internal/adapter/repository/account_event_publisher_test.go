package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peluchemoreno/esti-mate-billing/internal/adapter/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/messaging"
)

func TestAccountEventPublisher(t *testing.T) {
	client, _ := newTestRedis(t)
	bus := messaging.NewRedisBus(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, repository.AccountUpdatedChannel)
	require.NoError(t, err)

	account := entity.NewBillingAccount(uuid.New(), "a@example.com")
	account.Plan = entity.PlanBasic
	account.Status = entity.StatusActive

	require.NoError(t, repository.NewAccountEventPublisher(bus).PublishAccountUpdated(ctx, account, "invoice.paid"))

	select {
	case msg := <-ch:
		var got repository.AccountUpdatedMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, account.AccountID.String(), got.AccountID)
		assert.Equal(t, "basic", got.Plan)
		assert.Equal(t, "active", got.Status)
		assert.Equal(t, "invoice.paid", got.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("no account update published")
	}
}
