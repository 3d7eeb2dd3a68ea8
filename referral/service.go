// Package referral implements the referral marketplace operations: self-logged
// referrals, student requests with their payment sub-flow, professional offers
// and profiles. Every status change goes through the lifecycle tables and is
// applied as one locked read-modify-write on the store.
package referral

import (
	"context"
	"time"

	"go-referral/analytics"
	"go-referral/counter"
	"go-referral/log"
	"go-referral/metrics"
	"go-referral/payment/gateway"
	"go-referral/web/db"
	"go-referral/web/storage"
)

// Deps are the collaborators shared by the services. Events, Metrics and
// Logger may be left nil.
type Deps struct {
	Store    db.Store
	Counters counter.Counter
	Gateway  gateway.Gateway
	Objects  storage.ObjectStore
	Events   analytics.Sink
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = analytics.Nop{}
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.Counters == nil {
		d.Counters = counter.NewStore(d.Store)
	}
	return d
}

// incr bumps a counter after the document write it belongs to. A failure is
// logged and left for the reconciliation job.
func (d Deps) incr(ctx context.Context, userID, field string, delta int64) {
	if delta == 0 {
		return
	}
	if err := d.Counters.Incr(ctx, userID, field, delta); err != nil {
		d.Logger.WithUser(userID).WithError(err).WithField("counter", field).Warn("counter increment failed")
	}
}

// Services bundles the four services over one set of Deps.
type Services struct {
	Requests  *RequestService
	Offers    *OfferService
	Referrals *ReferralService
	Profiles  *ProfileService
}

func New(d Deps) *Services {
	d = d.withDefaults()
	return &Services{
		Requests:  &RequestService{d: d, now: time.Now},
		Offers:    &OfferService{d: d, now: time.Now},
		Referrals: &ReferralService{d: d},
		Profiles:  &ProfileService{d: d},
	}
}
