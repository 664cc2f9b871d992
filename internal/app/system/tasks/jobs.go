// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.uber.org/zap"
)

// StuckPaidThreshold is how long an order may sit in paid before it is
// reported. Delivery normally follows payment within seconds.
const StuckPaidThreshold = 15 * time.Minute

// StuckOrderLister finds paid orders whose delivery never completed.
// *orderstore.Store satisfies it.
type StuckOrderLister interface {
	ListStuckPaid(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// StuckPaidOrdersJob reports orders that were paid but never delivered so
// an operator can resend them from the admin orders view.
func StuckPaidOrdersJob(orders StuckOrderLister, logger *zap.Logger, threshold time.Duration) Job {
	return Job{
		Name:     "stuck-paid-orders",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			stuck, err := orders.ListStuckPaid(ctx, time.Now().Add(-threshold))
			if err != nil {
				return err
			}
			for _, o := range stuck {
				item := o.Item()
				logger.Warn("order paid but not delivered",
					zap.String("order_id", o.ID.Hex()),
					zap.String("email", o.Email),
					zap.String("item_kind", item.Kind),
					zap.String("item_id", item.ID.Hex()),
					zap.String("payment_id", o.PaymentID),
					zap.Time("paid_at", o.UpdatedAt))
			}
			if len(stuck) > 0 {
				logger.Warn("stuck paid orders need resending", zap.Int("count", len(stuck)))
			}
			return nil
		},
	}
}

// purgeJob runs purge on an interval and logs what it removed.
func purgeJob(name string, every time.Duration, logger *zap.Logger, what string, purge func(context.Context) (int64, error)) Job {
	return Job{
		Name:     name,
		Interval: every,
		Run: func(ctx context.Context) error {
			n, err := purge(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged "+what, zap.String("job", name), zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// StatePurger drops expired OAuth state tokens. *oauthstate.Store
// satisfies it.
type StatePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// OAuthStateCleanupJob removes expired OAuth state tokens for deployments
// where the TTL index is unavailable.
func OAuthStateCleanupJob(states StatePurger, logger *zap.Logger) Job {
	return purgeJob("oauth-state-cleanup", time.Hour, logger, "expired oauth states", states.Purge)
}

// IdleLimit is how long a rate limit counter may sit unused before the
// cleanup job removes it.
const IdleLimit = 24 * time.Hour

// CounterPurger drops idle rate limit counters. *ratelimit.Store
// satisfies it.
type CounterPurger interface {
	Purge(ctx context.Context, idle time.Duration) (int64, error)
}

// RateLimitCleanupJob removes idle, unlocked counters from every limiter.
func RateLimitCleanupJob(logger *zap.Logger, limiters ...CounterPurger) Job {
	return purgeJob("ratelimit-cleanup", 6*time.Hour, logger, "idle rate limit counters",
		func(ctx context.Context) (int64, error) {
			var total int64
			for _, l := range limiters {
				n, err := l.Purge(ctx, IdleLimit)
				total += n
				if err != nil {
					return total, err
				}
			}
			return total, nil
		})
}
