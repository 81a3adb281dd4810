package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventPublisher_PublishJSON(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewEventPublisher(client, "posture:events:stream", zap.NewNop())
	ctx := context.Background()

	payload := map[string]string{"event_id": "e-1", "event_type": "fall_detected"}
	id, err := p.PublishJSON(ctx, "fall_detected", payload)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "posture:events:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "fall_detected", msgs[0].Values["event_type"])

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &decoded))
	assert.Equal(t, payload, decoded)
}

func TestEventPublisher_MarshalError(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewEventPublisher(client, "s", zap.NewNop())

	_, err := p.PublishJSON(context.Background(), "x", make(chan int))
	assert.Error(t, err)
}
