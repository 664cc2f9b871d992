package timeouts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSet_KeepsUnsetFields(t *testing.T) {
	t.Cleanup(Reset)

	Set(Values{Query: 3 * time.Second})
	got := Get()
	assert.Equal(t, 3*time.Second, got.Query)
	assert.Equal(t, Defaults.Ping, got.Ping)
	assert.Equal(t, Defaults.Outbound, got.Outbound)

	Reset()
	assert.Equal(t, Defaults, Get())
}

func TestLoadEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv(EnvPrefix+"QUERY", "1500ms")
	t.Setenv(EnvPrefix+"OUTBOUND", "soon")
	t.Setenv(EnvPrefix+"PING", "-5s")

	assert.Equal(t, []string{"QUERY"}, LoadEnv())
	assert.Equal(t, 1500*time.Millisecond, Query())
	assert.Equal(t, Defaults.Outbound, Outbound())
	assert.Equal(t, Defaults.Ping, Ping())
}

func TestBound_LogsOwnDeadline(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx, cancel := Bound(context.Background(), time.Millisecond, zap.New(core), "google.userinfo")
	<-ctx.Done()
	cancel()

	entries := logs.FilterMessage("deadline exceeded").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "google.userinfo", entries[0].ContextMap()["op"])
	}
}

func TestBound_QuietWhenParentEnds(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	parent, stop := context.WithTimeout(context.Background(), time.Millisecond)
	defer stop()
	ctx, cancel := Bound(parent, time.Millisecond, zap.New(core), "users.fetch")
	<-ctx.Done()
	<-parent.Done()
	cancel()
	assert.Zero(t, logs.Len())

	_, cancel = Bound(context.Background(), time.Minute, zap.New(core), "fast")
	cancel()
	assert.Zero(t, logs.Len())
}
