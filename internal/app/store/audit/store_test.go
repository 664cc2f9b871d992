package audit

import (
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestInsert_StampsIDAndTime(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	require.NoError(t, store.Insert(ctx, Event{
		Category:  CategoryAdmin,
		EventType: EventContentDeleted,
		ActorID:   &actor,
		Subject:   primitive.NewObjectID().Hex(),
		IP:        "192.0.2.10",
		Success:   true,
		Details:   map[string]string{"entity": "sections"},
	}))

	events, err := store.Find(ctx, Filter{ActorID: &actor})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].ID.IsZero())
	assert.WithinDuration(t, time.Now(), events[0].CreatedAt, time.Minute)
	assert.Equal(t, "sections", events[0].Details["entity"])
}

func TestFind_Filters(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().Add(-48 * time.Hour)
	for _, e := range []Event{
		{Category: CategoryAuth, EventType: EventLoginSuccess, Subject: "owner@shop.test", Success: true},
		{Category: CategoryAuth, EventType: EventLoginFailedWrongPassword, Subject: "owner@shop.test", CreatedAt: old},
		{Category: CategoryPurchase, EventType: EventPaymentRejected, Subject: "order_9"},
	} {
		require.NoError(t, store.Insert(ctx, e))
	}

	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 3},
		{"category", Filter{Category: CategoryAuth}, 2},
		{"event type", Filter{EventType: EventPaymentRejected}, 1},
		{"subject", Filter{Subject: "owner@shop.test"}, 2},
		{"since", Filter{Since: time.Now().Add(-time.Hour)}, 2},
		{"limit", Filter{Limit: 1}, 1},
		{"skip", Filter{Skip: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Find(ctx, tt.f)
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
		})
	}

	n, err := store.Count(ctx, Filter{Category: CategoryAuth, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestFind_NewestFirst(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour).UTC()
	for i := range 3 {
		require.NoError(t, store.Insert(ctx, Event{
			Category:  CategoryAdmin,
			EventType: EventContentUpdated,
			Subject:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.Find(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].Subject)
	assert.Equal(t, "a", events[2].Subject)
}
