// Package health answers load balancer and orchestrator probes.
package health

import (
	"context"
	"net/http"
	"sync"

	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// probe is one backend the service talks to. A failing required probe makes
// the service unavailable; any other failure only degrades it.
type probe struct {
	name     string
	required bool
	ping     func(context.Context) error
}

type Handler struct {
	probes []probe
	logger *zap.Logger
}

// NewHandler probes MongoDB and, when rdb is non-nil, the Redis section
// cache. Section reads fall back to Mongo, so Redis is optional.
func NewHandler(client *mongo.Client, rdb *redis.Client, logger *zap.Logger) *Handler {
	h := &Handler{logger: logger}
	h.probes = append(h.probes, probe{
		name:     "mongodb",
		required: true,
		ping:     func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	})
	if rdb != nil {
		h.probes = append(h.probes, probe{
			name: "redis",
			ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return h
}

// Response is the probe body. Services is only filled by the full check.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes serves / (every backend), /ready and /live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes-style probe paths to r.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// run pings the selected probes in parallel under one Ping deadline and
// returns each probe's result keyed by name.
func (h *Handler) run(ctx context.Context, requiredOnly bool) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]error, len(h.probes))
		g       errgroup.Group
	)
	for _, p := range h.probes {
		if requiredOnly && !p.required {
			continue
		}
		g.Go(func() error {
			err := p.ping(ctx)
			if err != nil {
				h.logger.Warn("health probe failed", zap.String("service", p.name), zap.Error(err))
			}
			mu.Lock()
			results[p.name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Check reports every backend: ok, degraded (an optional one is down) or
// unavailable (503, a required one is down).
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	results := h.run(r.Context(), false)

	resp := Response{Status: "ok", Services: make(map[string]string, len(results))}
	code := http.StatusOK
	for _, p := range h.probes {
		if results[p.name] == nil {
			resp.Services[p.name] = "ok"
			continue
		}
		resp.Services[p.name] = "unavailable"
		switch {
		case p.required:
			resp.Status, code = "unavailable", http.StatusServiceUnavailable
		case resp.Status == "ok":
			resp.Status = "degraded"
		}
	}
	jsonutil.JSON(w, code, resp)
}

// Ready answers 200 while every required backend responds.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	for _, err := range h.run(r.Context(), true) {
		if err != nil {
			jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
			return
		}
	}
	jsonutil.OK(w, Response{Status: "ready"})
}

// Live always answers.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	jsonutil.OK(w, Response{Status: "alive"})
}
