package referral

import (
	"context"
	"strings"

	"go-referral/analytics"
	"go-referral/lifecycle"
	"go-referral/utils"
	"go-referral/web/db"
)

// ReferralService keeps a user's own log of referrals they made. Nobody else
// confirms them, so the status is whatever the owner sets.
type ReferralService struct {
	d Deps
}

func (s *ReferralService) Create(ctx context.Context, ownerID, refereeEmail, refereeName, jobType string) (*db.Referral, error) {
	refereeEmail = strings.TrimSpace(refereeEmail)
	refereeName = strings.TrimSpace(refereeName)
	if refereeEmail == "" || !strings.Contains(refereeEmail, "@") {
		return nil, lifecycle.Invalid("referee_email", "a valid email is required")
	}
	if refereeName == "" {
		return nil, lifecycle.Invalid("referee_name", "is required")
	}

	owner, err := s.d.Store.GetUser(ctx, ownerID)
	if err != nil {
		return nil, lifecycle.Remote("load user", err)
	}

	r := &db.Referral{
		ID:           utils.GenerateUUID(),
		ReferrerID:   owner.ID,
		ReferrerRole: owner.Role,
		RefereeEmail: refereeEmail,
		RefereeName:  refereeName,
		JobType:      strings.TrimSpace(jobType),
		Status:       lifecycle.ReferralPending,
	}
	if err := s.d.Store.CreateReferral(ctx, r); err != nil {
		return nil, lifecycle.Remote("create referral", err)
	}
	s.d.incr(ctx, owner.ID, db.FieldReferralsGenerated, 1)

	s.d.Events.LogEvent(ctx, "referral_created", analytics.Params{"referral_id": r.ID, "user_id": owner.ID})
	return r, nil
}

func (s *ReferralService) List(ctx context.Context, ownerID string) ([]db.Referral, error) {
	out, err := s.d.Store.ListReferrals(ctx, ownerID)
	if err != nil {
		return nil, lifecycle.Remote("list referrals", err)
	}
	return out, nil
}

func oneIf(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// UpdateStatus sets any of pending, active or completed, and keeps the owner's
// active and successful counters in step.
func (s *ReferralService) UpdateStatus(ctx context.Context, id, ownerID string, status lifecycle.ReferralStatus) (*db.Referral, error) {
	if !status.Valid() {
		return nil, lifecycle.Invalid("status", "must be pending, active or completed")
	}

	var from lifecycle.ReferralStatus
	r, err := s.d.Store.UpdateReferral(ctx, id, func(r *db.Referral) error {
		if r.ReferrerID != ownerID {
			return &lifecycle.AuthorizationError{ActorID: ownerID, Action: "update referral"}
		}
		from = r.Status
		r.Status = status
		return nil
	})
	if err != nil {
		return nil, lifecycle.Remote("update referral", err)
	}

	s.d.incr(ctx, ownerID, db.FieldActiveReferrals,
		oneIf(status == lifecycle.ReferralActive)-oneIf(from == lifecycle.ReferralActive))
	s.d.incr(ctx, ownerID, db.FieldSuccessfulReferrals,
		oneIf(status == lifecycle.ReferralCompleted)-oneIf(from == lifecycle.ReferralCompleted))
	s.d.Metrics.Transition("referral", string(from), string(status))
	return r, nil
}
