// Package jobs runs the periodic maintenance of the web service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go-referral/counter"
	"go-referral/log"
	"go-referral/web/db"

	"github.com/robfig/cron/v3"
)

// Report summarises one reconciliation pass.
type Report struct {
	Users int `json:"users"`
	Fixed int `json:"fixed"`
}

// Reconciler recomputes the counters that can be derived from documents,
// fixing the drift a failed increment leaves behind, and purges expired tokens.
type Reconciler struct {
	store    db.Store
	counters counter.Counter
	logger   *log.Logger
	now      func() time.Time
}

func NewReconciler(store db.Store, counters counter.Counter, logger *log.Logger) *Reconciler {
	if counters == nil {
		counters = counter.NewStore(store)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Reconciler{store: store, counters: counters, logger: logger, now: time.Now}
}

func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var rep Report

	users, err := r.store.ListUsers(ctx, db.UserFilter{})
	if err != nil {
		return rep, fmt.Errorf("list users: %w", err)
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	rep.Users = len(ids)

	fixed, err := r.counters.Recount(ctx, ids)
	rep.Fixed = fixed
	if err != nil {
		return rep, fmt.Errorf("recount counters: %w", err)
	}
	if fixed > 0 {
		r.logger.WithField("fixed", fixed).Info("counters reconciled")
	}

	if err := r.store.PurgeExpired(ctx, r.now()); err != nil {
		return rep, fmt.Errorf("purge expired tokens: %w", err)
	}
	return rep, nil
}

// Start runs r on the given schedule (cron syntax or "@every 1h"). The returned
// cron is already running; Stop it on shutdown.
func Start(r *Reconciler, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		rep, err := r.Run(ctx)
		if err != nil {
			r.logger.WithError(err).Error("reconciliation failed")
			return
		}
		r.logger.WithField("users", rep.Users).WithField("fixed", rep.Fixed).Info("reconciliation done")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconciliation %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
