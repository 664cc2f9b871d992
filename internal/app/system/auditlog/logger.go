// Package auditlog records audit events to MongoDB, to zap, or both,
// chosen per category.
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config picks a destination per category: "all" (default), "db", "log"
// or "off".
type Config struct {
	Auth     string
	Admin    string
	Purchase string
}

type sink uint8

const (
	toLog sink = 1 << iota
	toDB
)

func parseSink(v string) sink {
	switch normalize.Token(v) {
	case "off":
		return 0
	case "db":
		return toDB
	case "log":
		return toLog
	default:
		return toLog | toDB
	}
}

// Logger is safe to call on a nil receiver, which records nothing.
type Logger struct {
	store  *audit.Store
	log    *zap.Logger
	routes map[string]sink
}

func New(store *audit.Store, log *zap.Logger, cfg Config) *Logger {
	return &Logger{
		store: store,
		log:   log,
		routes: map[string]sink{
			audit.CategoryAuth:     parseSink(cfg.Auth),
			audit.CategoryAdmin:    parseSink(cfg.Admin),
			audit.CategoryPurchase: parseSink(cfg.Purchase),
		},
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func fromRequest(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// Record writes e to the destinations configured for its category.
// Unknown categories go everywhere.
func (l *Logger) Record(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}
	dest, ok := l.routes[e.Category]
	if !ok {
		dest = toLog | toDB
	}
	if dest&toLog != 0 {
		l.emit(e)
	}
	if dest&toDB != 0 && l.store != nil {
		if err := l.store.Insert(ctx, e); err != nil {
			l.log.Error("audit insert failed", zap.String("event_type", e.EventType), zap.Error(err))
		}
	}
}

func (l *Logger) emit(e audit.Event) {
	fields := make([]zap.Field, 0, 8+len(e.Details))
	fields = append(fields,
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	)
	if e.Subject != "" {
		fields = append(fields, zap.String("subject", e.Subject))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.log.Info("audit event", fields...)
		return
	}
	l.log.Warn("audit event", fields...)
}

// Admin sign-in.

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.ActorID, e.Subject = &userID, email
	e.Details = map[string]string{"auth_method": authMethod}
	l.Record(ctx, e)
}

// LoginFailed takes one of the audit.EventLoginFailed* or
// audit.EventLoginRateLimited event types.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, email, reason string) {
	e := fromRequest(r, audit.CategoryAuth, eventType, false)
	e.Subject, e.FailureReason = email, reason
	l.Record(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLogout, true)
	e.ActorID = &userID
	l.Record(ctx, e)
}

// Back-office writes.

// AdminChange records a catalog or furniture write by the admin signed in
// on r. entity is the collection name.
func (l *Logger) AdminChange(r *http.Request, eventType, entity, id string) {
	e := fromRequest(r, audit.CategoryAdmin, eventType, true)
	if u, ok := auth.CurrentUser(r); ok {
		actor := u.UserID()
		e.ActorID = &actor
	}
	e.Subject = id
	e.Details = map[string]string{"entity": entity}
	l.Record(r.Context(), e)
}

func (l *Logger) OrderResent(ctx context.Context, r *http.Request, actorID primitive.ObjectID, orderID string, success bool, reason string) {
	e := fromRequest(r, audit.CategoryAdmin, audit.EventOrderResent, success)
	e.ActorID, e.Subject, e.FailureReason = &actorID, orderID, reason
	l.Record(ctx, e)
}

func (l *Logger) Revalidated(ctx context.Context, r *http.Request, tag string, success bool, reason string) {
	e := fromRequest(r, audit.CategoryAdmin, audit.EventCacheCleared, success)
	e.Subject, e.FailureReason = tag, reason
	l.Record(ctx, e)
}

// Payment callbacks, keyed by gateway order id.

func (l *Logger) PaymentAccepted(ctx context.Context, r *http.Request, gatewayOrderID, paymentID string) {
	e := fromRequest(r, audit.CategoryPurchase, audit.EventPaymentAccepted, true)
	e.Subject = gatewayOrderID
	e.Details = map[string]string{"payment_id": paymentID}
	l.Record(ctx, e)
}

func (l *Logger) PaymentRejected(ctx context.Context, r *http.Request, gatewayOrderID, reason string) {
	e := fromRequest(r, audit.CategoryPurchase, audit.EventPaymentRejected, false)
	e.Subject, e.FailureReason = gatewayOrderID, reason
	l.Record(ctx, e)
}

func (l *Logger) DeliveryFailed(ctx context.Context, r *http.Request, gatewayOrderID, reason string) {
	e := fromRequest(r, audit.CategoryPurchase, audit.EventDeliveryFailed, false)
	e.Subject, e.FailureReason = gatewayOrderID, reason
	l.Record(ctx, e)
}
