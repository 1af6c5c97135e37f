package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBus_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	bus := NewRedisBus(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "billing.account.updated")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "billing.account.updated", map[string]string{"plan": "basic"}))

	select {
	case msg := <-ch:
		assert.Equal(t, "billing.account.updated", msg.Channel)
		assert.JSONEq(t, `{"plan":"basic"}`, string(msg.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestRedisBus_PublishRejectsUnserializable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	err := NewRedisBus(client).Publish(context.Background(), "c", make(chan int))
	assert.Error(t, err)
}
