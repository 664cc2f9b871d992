// Package timeouts holds the process-wide deadlines for calls that leave the
// request goroutine: database pings, single store lookups and outbound HTTP.
package timeouts

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EnvPrefix prefixes the overrides read by LoadEnv, e.g.
// STRATASTORE_TIMEOUT_QUERY=3s.
const EnvPrefix = "STRATASTORE_TIMEOUT_"

// Values is one set of deadlines. Zero fields mean "keep the current value"
// when passed to Set.
type Values struct {
	Ping     time.Duration // Mongo and Redis pings (startup, /health)
	Query    time.Duration // single lookups outside a request deadline
	Outbound time.Duration // OAuth userinfo and other third-party HTTP calls
}

// Defaults are used until Set or LoadEnv changes them.
var Defaults = Values{
	Ping:     2 * time.Second,
	Query:    5 * time.Second,
	Outbound: 10 * time.Second,
}

var current atomic.Pointer[Values]

func init() { Reset() }

// Get returns the active deadlines.
func Get() Values { return *current.Load() }

func Ping() time.Duration     { return Get().Ping }
func Query() time.Duration    { return Get().Query }
func Outbound() time.Duration { return Get().Outbound }

// Set overlays the positive fields of v onto the active deadlines.
func Set(v Values) {
	next := Get()
	if v.Ping > 0 {
		next.Ping = v.Ping
	}
	if v.Query > 0 {
		next.Query = v.Query
	}
	if v.Outbound > 0 {
		next.Outbound = v.Outbound
	}
	current.Store(&next)
}

// Reset restores Defaults.
func Reset() {
	d := Defaults
	current.Store(&d)
}

// LoadEnv applies PING, QUERY and OUTBOUND overrides from the environment
// and returns the names it applied. Bad or non-positive durations are skipped.
func LoadEnv() []string {
	var v Values
	var applied []string
	for name, dst := range map[string]*time.Duration{
		"PING":     &v.Ping,
		"QUERY":    &v.Query,
		"OUTBOUND": &v.Outbound,
	} {
		d, err := time.ParseDuration(os.Getenv(EnvPrefix + name))
		if err != nil || d <= 0 {
			continue
		}
		*dst = d
		applied = append(applied, name)
	}
	Set(v)
	return applied
}

// Bound derives a context that expires after d. The returned cancel logs a
// warning naming op when the deadline, rather than the caller, ended it.
func Bound(parent context.Context, d time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			log.Warn("deadline exceeded", zap.String("op", op), zap.Duration("after", d))
		}
		cancel()
	}
}
