package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kittycore/pkg/domain"
)

func TestCollectorDrain(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()
	c.Emit(ctx, domain.Event{Kind: domain.EventCreated, Owner: "alice"})
	c.Emit(ctx, domain.Event{Kind: domain.EventPriceSet, Owner: "alice", Price: domain.NewPrice(3)})

	assert.Len(t, c.Events(), 2)
	drained := c.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, domain.EventCreated, drained[0].Kind)
	assert.Equal(t, domain.EventPriceSet, drained[1].Kind)
	assert.Empty(t, c.Drain())
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	var seen []domain.EventKind
	fan := Fanout{a, nil, b, SinkFunc(func(_ context.Context, e domain.Event) { seen = append(seen, e.Kind) })}

	fan.Emit(context.Background(), domain.Event{Kind: domain.EventSold})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
	assert.Equal(t, []domain.EventKind{domain.EventSold}, seen)
}

func TestEnvelopeJSON(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	env := NewEnvelope(domain.Event{Kind: domain.EventTransferred, From: "a", To: "b", Block: 4}, now)

	_, err := uuid.Parse(env.ID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, env.EmittedAt.Location())

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	event, ok := decoded["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "transferred", event["kind"])
	assert.Equal(t, "a", event["from"])
	assert.NotContains(t, event, "price")
}
