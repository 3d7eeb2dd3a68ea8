package referral

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-referral/analytics"
	"go-referral/lifecycle"
	"go-referral/utils"
	"go-referral/web/db"
)

type OfferService struct {
	d   Deps
	now func() time.Time
}

func (s *OfferService) Create(ctx context.Context, professionalID, studentID, jobPosition, company, message string) (*db.ReferralOffer, error) {
	jobPosition = strings.TrimSpace(jobPosition)
	company = strings.TrimSpace(company)
	if jobPosition == "" {
		return nil, lifecycle.Invalid("job_position", "is required")
	}

	pro, err := s.d.Store.GetUser(ctx, professionalID)
	if err != nil {
		return nil, lifecycle.Remote("load professional", err)
	}
	if pro.Role != lifecycle.RoleProfessional {
		return nil, &lifecycle.AuthorizationError{ActorID: professionalID, Action: "create offer"}
	}
	if company == "" {
		company = pro.Company
	}
	if company == "" {
		return nil, lifecycle.Invalid("company", "is required")
	}

	student, err := s.d.Store.GetUser(ctx, studentID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, lifecycle.Invalid("student_id", "unknown student")
	}
	if err != nil {
		return nil, lifecycle.Remote("load student", err)
	}
	if student.Role != lifecycle.RoleStudent {
		return nil, lifecycle.Invalid("student_id", "is not a student")
	}

	o := &db.ReferralOffer{
		ID:                utils.GenerateUUID(),
		ProfessionalID:    pro.ID,
		ProfessionalName:  pro.Name(),
		ProfessionalEmail: pro.Email,
		StudentID:         student.ID,
		StudentName:       student.Name(),
		StudentEmail:      student.Email,
		JobPosition:       jobPosition,
		Company:           company,
		Message:           strings.TrimSpace(message),
		Status:            lifecycle.OfferOffered,
	}
	if err := s.d.Store.CreateOffer(ctx, o); err != nil {
		return nil, lifecycle.Remote("create offer", err)
	}

	s.d.Metrics.Transition("offer", "", string(o.Status))
	s.d.Logger.WithField("offer_id", o.ID).WithField("professional_id", o.ProfessionalID).Info("referral offer created")
	s.d.Events.LogEvent(ctx, "offer_created", analytics.Params{
		"offer_id": o.ID, "professional_id": o.ProfessionalID, "student_id": o.StudentID,
	})
	return o, nil
}

func (s *OfferService) transition(ctx context.Context, id, actorID string, action lifecycle.OfferAction,
	apply func(o *db.ReferralOffer, now time.Time)) (*db.ReferralOffer, error) {
	var from lifecycle.OfferStatus
	o, err := s.d.Store.UpdateOffer(ctx, id, func(o *db.ReferralOffer) error {
		party, ok := lifecycle.PartyOf(actorID, o.StudentID, o.ProfessionalID)
		if !ok {
			return &lifecycle.AuthorizationError{ActorID: actorID, Action: string(action) + " offer"}
		}
		next, err := lifecycle.NextOfferStatus(o.Status, action, party)
		if err != nil {
			var ae *lifecycle.AuthorizationError
			if errors.As(err, &ae) {
				ae.ActorID = actorID
			}
			return err
		}
		from = o.Status
		if apply != nil {
			apply(o, s.now())
		}
		o.Status = next
		return nil
	})
	if err != nil {
		return nil, lifecycle.Remote("update offer", err)
	}

	s.d.Metrics.Transition("offer", string(from), string(o.Status))
	s.d.Logger.WithField("offer_id", o.ID).WithField("actor_id", actorID).
		WithField("from", from).WithField("to", o.Status).Info("referral offer updated")
	s.d.Events.LogEvent(ctx, "offer_"+string(action), analytics.Params{
		"offer_id": o.ID, "actor_id": actorID, "status": string(o.Status),
	})
	return o, nil
}

// StudentRespond accepts or declines an offer.
func (s *OfferService) StudentRespond(ctx context.Context, id, actorID, decision string) (*db.ReferralOffer, error) {
	var action lifecycle.OfferAction
	switch decision {
	case "accept":
		action = lifecycle.OfferAccept
	case "decline":
		action = lifecycle.OfferDecline
	default:
		return nil, lifecycle.Invalid("action", "must be accept or decline")
	}
	return s.transition(ctx, id, actorID, action, nil)
}

// MarkComplete is done by the professional once the referral was submitted.
func (s *OfferService) MarkComplete(ctx context.Context, id, actorID string) (*db.ReferralOffer, error) {
	o, err := s.transition(ctx, id, actorID, lifecycle.OfferComplete, func(o *db.ReferralOffer, now time.Time) {
		o.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.d.incr(ctx, o.ProfessionalID, db.FieldSuccessfulReferrals, 1)
	return o, nil
}

func (s *OfferService) Get(ctx context.Context, id, actorID string) (*db.ReferralOffer, error) {
	o, err := s.d.Store.GetOffer(ctx, id)
	if err != nil {
		return nil, lifecycle.Remote("load offer", err)
	}
	if _, ok := lifecycle.PartyOf(actorID, o.StudentID, o.ProfessionalID); !ok {
		return nil, &lifecycle.AuthorizationError{ActorID: actorID, Action: "view offer"}
	}
	return o, nil
}

// ListForUser returns offers a student received or a professional sent.
func (s *OfferService) ListForUser(ctx context.Context, actorID string) ([]db.ReferralOffer, error) {
	u, err := s.d.Store.GetUser(ctx, actorID)
	if err != nil {
		return nil, lifecycle.Remote("load user", err)
	}
	f := db.OfferFilter{StudentID: u.ID}
	if u.Role == lifecycle.RoleProfessional {
		f = db.OfferFilter{ProfessionalID: u.ID}
	}
	out, err := s.d.Store.ListOffers(ctx, f)
	if err != nil {
		return nil, lifecycle.Remote("list offers", err)
	}
	return out, nil
}
