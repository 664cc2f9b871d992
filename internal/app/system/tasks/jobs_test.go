package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/oauthstate"
	"github.com/dalemusser/stratastore/internal/app/store/ratelimit"
	"github.com/dalemusser/stratastore/internal/app/system/tasks"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stuckLister struct {
	orders []models.Order
	err    error
	cutoff time.Time
}

func (s *stuckLister) ListStuckPaid(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	s.cutoff = cutoff
	return s.orders, s.err
}

func TestStuckPaidOrdersJob_LogsEachOrder(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pid := primitive.NewObjectID()
	lister := &stuckLister{orders: []models.Order{
		{ID: primitive.NewObjectID(), Email: "a@example.com", ProductID: &pid, Status: models.OrderPaid, PaymentID: "pay_1"},
		{ID: primitive.NewObjectID(), Email: "b@example.com", ProductID: &pid, Status: models.OrderPaid, PaymentID: "pay_2"},
	}}

	job := tasks.StuckPaidOrdersJob(lister, zap.New(core), tasks.StuckPaidThreshold)
	if job.Name != "stuck-paid-orders" {
		t.Errorf("job name = %q", job.Name)
	}

	before := time.Now()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := logs.FilterMessage("order paid but not delivered").Len(); got != 2 {
		t.Errorf("per-order warnings = %d, want 2", got)
	}
	if got := logs.FilterMessage("stuck paid orders need resending").Len(); got != 1 {
		t.Errorf("summary warnings = %d, want 1", got)
	}
	if lister.cutoff.After(before.Add(-tasks.StuckPaidThreshold).Add(time.Second)) {
		t.Errorf("cutoff %v is not %v before now", lister.cutoff, tasks.StuckPaidThreshold)
	}
}

func TestStuckPaidOrdersJob_QuietWhenNothingStuck(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	job := tasks.StuckPaidOrdersJob(&stuckLister{}, zap.New(core), time.Minute)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no logs, got %d", logs.Len())
	}
}

func TestStuckPaidOrdersJob_PropagatesError(t *testing.T) {
	want := errors.New("db down")
	job := tasks.StuckPaidOrdersJob(&stuckLister{err: want}, zap.NewNop(), time.Minute)
	if err := job.Run(context.Background()); !errors.Is(err, want) {
		t.Errorf("Run() error = %v, want %v", err, want)
	}
}

type counterPurger struct {
	deleted int64
	err     error
	idle    time.Duration
}

func (c *counterPurger) Purge(_ context.Context, idle time.Duration) (int64, error) {
	c.idle = idle
	return c.deleted, c.err
}

func TestRateLimitCleanupJob_SumsLimiters(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a, b := &counterPurger{deleted: 2}, &counterPurger{deleted: 3}

	job := tasks.RateLimitCleanupJob(zap.New(core), a, b)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, tasks.IdleLimit, a.idle)
	entries := logs.FilterMessage("purged idle rate limit counters").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 5, entries[0].ContextMap()["deleted"])
}

func TestRateLimitCleanupJob_StopsOnError(t *testing.T) {
	want := errors.New("db down")
	failing, after := &counterPurger{err: want}, &counterPurger{deleted: 1}

	err := tasks.RateLimitCleanupJob(zap.NewNop(), failing, after).Run(context.Background())
	assert.ErrorIs(t, err, want)
	assert.Zero(t, after.idle, "later limiters are skipped")
}

func TestRateLimitCleanupJob_Store(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	limiter := ratelimit.New(db, ratelimit.ScopeAdminLogin, 5, time.Minute, time.Minute)
	_, err := db.Collection("rate_limits").InsertOne(ctx, bson.M{
		"key":          ratelimit.ScopeAdminLogin + ":idle@example.com",
		"last_attempt": time.Now().Add(-48 * time.Hour),
		"locked_until": nil,
	})
	require.NoError(t, err)

	require.NoError(t, tasks.RateLimitCleanupJob(zap.NewNop(), limiter).Run(ctx))

	a, err := limiter.Peek(ctx, "idle@example.com")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestOAuthStateCleanupJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("oauth_states")
	_, err := coll.InsertMany(ctx, []interface{}{
		bson.M{"state": "expired", "expires_at": time.Now().Add(-time.Minute)},
		bson.M{"state": "live", "expires_at": time.Now().Add(time.Minute)},
	})
	require.NoError(t, err)

	require.NoError(t, tasks.OAuthStateCleanupJob(oauthstate.New(db), zap.NewNop()).Run(ctx))

	n, err := coll.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
