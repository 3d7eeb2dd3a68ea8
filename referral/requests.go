package referral

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-referral/analytics"
	"go-referral/lifecycle"
	"go-referral/payment/gateway"
	"go-referral/utils"
	"go-referral/web/db"
)

type RequestService struct {
	d   Deps
	now func() time.Time
}

func (s *RequestService) Create(ctx context.Context, studentID, professionalID, jobPosition, company, message string) (*db.ReferralRequest, error) {
	jobPosition = strings.TrimSpace(jobPosition)
	company = strings.TrimSpace(company)
	if jobPosition == "" {
		return nil, lifecycle.Invalid("job_position", "is required")
	}
	if company == "" {
		return nil, lifecycle.Invalid("company", "is required")
	}

	student, err := s.d.Store.GetUser(ctx, studentID)
	if err != nil {
		return nil, lifecycle.Remote("load student", err)
	}
	if student.Role != lifecycle.RoleStudent {
		return nil, &lifecycle.AuthorizationError{ActorID: studentID, Action: "create request"}
	}
	pro, err := s.d.Store.GetUser(ctx, professionalID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, lifecycle.Invalid("professional_id", "unknown professional")
	}
	if err != nil {
		return nil, lifecycle.Remote("load professional", err)
	}
	if pro.Role != lifecycle.RoleProfessional {
		return nil, lifecycle.Invalid("professional_id", "is not a professional")
	}

	r := &db.ReferralRequest{
		ID:               utils.GenerateUUID(),
		StudentID:        student.ID,
		StudentName:      student.Name(),
		StudentEmail:     student.Email,
		ProfessionalID:   pro.ID,
		ProfessionalName: pro.Name(),
		JobPosition:      jobPosition,
		Company:          company,
		Message:          strings.TrimSpace(message),
		Status:           lifecycle.RequestPending,
	}
	if err := s.d.Store.CreateRequest(ctx, r); err != nil {
		return nil, lifecycle.Remote("create request", err)
	}
	s.d.incr(ctx, student.ID, db.FieldSentRequests, 1)

	s.d.Metrics.Transition("request", "", string(r.Status))
	s.d.Logger.WithRequest(r.ID).WithField("student_id", r.StudentID).
		WithField("professional_id", r.ProfessionalID).Info("referral request created")
	s.d.Events.LogEvent(ctx, "request_created", analytics.Params{
		"request_id": r.ID, "student_id": r.StudentID, "professional_id": r.ProfessionalID,
	})
	return r, nil
}

// transition applies action for actorID under the store's row lock. apply runs
// after the table allowed the move and may record extra fields.
func (s *RequestService) transition(ctx context.Context, id, actorID string, action lifecycle.RequestAction,
	apply func(r *db.ReferralRequest, now time.Time)) (*db.ReferralRequest, error) {
	var from lifecycle.RequestStatus
	r, err := s.d.Store.UpdateRequest(ctx, id, func(r *db.ReferralRequest) error {
		party, ok := lifecycle.PartyOf(actorID, r.StudentID, r.ProfessionalID)
		if !ok {
			return &lifecycle.AuthorizationError{ActorID: actorID, Action: string(action) + " request"}
		}
		next, err := lifecycle.NextRequestStatus(r.Status, action, party)
		if err != nil {
			var ae *lifecycle.AuthorizationError
			if errors.As(err, &ae) {
				ae.ActorID = actorID
			}
			return err
		}
		from = r.Status
		if apply != nil {
			apply(r, s.now())
		}
		r.Status = next
		return nil
	})
	if err != nil {
		return nil, lifecycle.Remote("update request", err)
	}

	s.d.Metrics.Transition("request", string(from), string(r.Status))
	s.d.Logger.WithRequest(r.ID).WithField("actor_id", actorID).
		WithField("from", from).WithField("to", r.Status).Info("referral request updated")
	s.d.Events.LogEvent(ctx, "request_"+string(action), analytics.Params{
		"request_id": r.ID, "actor_id": actorID, "status": string(r.Status),
	})
	return r, nil
}

// ProfessionalRespond answers a pending request: accept, request_payment
// (amount must be positive) or decline.
func (s *RequestService) ProfessionalRespond(ctx context.Context, id, actorID string, action lifecycle.RequestAction, amount int64, message string) (*db.ReferralRequest, error) {
	switch action {
	case lifecycle.RequestAccept, lifecycle.RequestDecline:
	case lifecycle.RequestRequestPayment:
		if amount <= 0 {
			return nil, lifecycle.Invalid("amount", "must be greater than zero")
		}
	default:
		return nil, lifecycle.Invalid("action", "must be accept, request_payment or decline")
	}

	message = strings.TrimSpace(message)
	return s.transition(ctx, id, actorID, action, func(r *db.ReferralRequest, _ time.Time) {
		required := action == lifecycle.RequestRequestPayment
		r.PaymentRequired = &required
		if required {
			r.PaymentAmount = &amount
		}
		if message != "" {
			r.ProfessionalMessage = message
		}
	})
}

// StudentRespondToPayment accepts or rejects a payment demand.
func (s *RequestService) StudentRespondToPayment(ctx context.Context, id, actorID, decision string) (*db.ReferralRequest, error) {
	var action lifecycle.RequestAction
	switch decision {
	case "accept":
		action = lifecycle.RequestAcceptPayment
	case "reject":
		action = lifecycle.RequestRejectPayment
	default:
		return nil, lifecycle.Invalid("action", "must be accept or reject")
	}
	return s.transition(ctx, id, actorID, action, nil)
}

// CompletePayment charges the student for an accepted payment demand and moves
// the request to payment_completed. The charge is keyed by the request id, so
// a retried or concurrent call never charges twice; only one of them applies
// the transition.
func (s *RequestService) CompletePayment(ctx context.Context, id, actorID string, method lifecycle.PaymentMethod, upiHandle string) (*db.ReferralRequest, *db.Payment, error) {
	upiHandle = strings.TrimSpace(upiHandle)
	if !method.Valid() {
		return nil, nil, lifecycle.Invalid("method", "must be upi, card or bank")
	}
	if method == lifecycle.MethodUPI && upiHandle == "" {
		return nil, nil, lifecycle.Invalid("upi_handle", "is required for upi payments")
	}
	if method != lifecycle.MethodUPI {
		upiHandle = ""
	}

	cur, err := s.d.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, nil, lifecycle.Remote("load request", err)
	}
	party, ok := lifecycle.PartyOf(actorID, cur.StudentID, cur.ProfessionalID)
	if !ok {
		return nil, nil, &lifecycle.AuthorizationError{ActorID: actorID, Action: "complete_payment request"}
	}
	if _, err := lifecycle.NextRequestStatus(cur.Status, lifecycle.RequestCompletePayment, party); err != nil {
		var ae *lifecycle.AuthorizationError
		if errors.As(err, &ae) {
			ae.ActorID = actorID
		}
		return nil, nil, err
	}
	if cur.PaymentAmount == nil || *cur.PaymentAmount <= 0 {
		return nil, nil, lifecycle.Invalid("amount", "request has no payment amount")
	}
	amount := *cur.PaymentAmount

	receipt, err := s.d.Gateway.Charge(ctx, gateway.Charge{
		IdempotencyKey: cur.ID,
		Amount:         amount,
		Method:         method,
		UPIHandle:      upiHandle,
	})
	if err != nil {
		s.d.Metrics.Payment(string(method), "failed")
		s.d.Logger.WithRequest(cur.ID).WithError(err).Warn("payment charge failed")
		return nil, nil, lifecycle.Remote("charge payment", err)
	}

	r, err := s.transition(ctx, id, actorID, lifecycle.RequestCompletePayment, func(r *db.ReferralRequest, _ time.Time) {
		paidAt := receipt.PaidAt
		r.PaymentMethod = method
		r.UPIHandle = upiHandle
		r.PaymentDate = &paidAt
	})
	if err != nil {
		return nil, nil, err
	}

	p := &db.Payment{
		ID:          utils.GenerateUUID(),
		RequestID:   r.ID,
		PayerID:     r.StudentID,
		PayeeID:     r.ProfessionalID,
		Method:      method,
		UPIHandle:   upiHandle,
		Amount:      amount,
		Reference:   receipt.Reference,
		CompletedAt: receipt.PaidAt,
	}
	if err := s.d.Store.CreatePayment(ctx, p); err != nil {
		if !errors.Is(err, db.ErrDuplicate) {
			return nil, nil, lifecycle.Remote("record payment", err)
		}
		if p, err = s.d.Store.GetPaymentByRequest(ctx, r.ID); err != nil {
			return nil, nil, lifecycle.Remote("load payment", err)
		}
	}

	s.d.incr(ctx, r.ProfessionalID, db.FieldTotalRewards, amount)
	s.d.Metrics.Payment(string(method), "completed")
	s.d.Events.LogEvent(ctx, "payment_completed", analytics.Params{
		"request_id": r.ID, "method": string(method), "amount": amount,
	})
	return r, p, nil
}

// MarkComplete closes an accepted or paid request. Either participant may do it.
func (s *RequestService) MarkComplete(ctx context.Context, id, actorID, note string) (*db.ReferralRequest, error) {
	note = strings.TrimSpace(note)
	r, err := s.transition(ctx, id, actorID, lifecycle.RequestComplete, func(r *db.ReferralRequest, now time.Time) {
		r.CompletionMessage = note
		r.CompletedAt = &now
		r.CompletedBy = actorID
	})
	if err != nil {
		return nil, err
	}
	s.d.incr(ctx, r.ProfessionalID, db.FieldSuccessfulReferrals, 1)
	return r, nil
}

// Cancel withdraws a request that is pending, accepted or awaiting a payment answer.
func (s *RequestService) Cancel(ctx context.Context, id, actorID, reason string) (*db.ReferralRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, lifecycle.Invalid("reason", "is required")
	}
	return s.transition(ctx, id, actorID, lifecycle.RequestCancel, func(r *db.ReferralRequest, now time.Time) {
		r.CancelReason = reason
		r.CancelledAt = &now
		r.CancelledBy = actorID
	})
}

// Get returns the request to one of its participants.
func (s *RequestService) Get(ctx context.Context, id, actorID string) (*db.ReferralRequest, error) {
	r, err := s.d.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, lifecycle.Remote("load request", err)
	}
	if _, ok := lifecycle.PartyOf(actorID, r.StudentID, r.ProfessionalID); !ok {
		return nil, &lifecycle.AuthorizationError{ActorID: actorID, Action: "view request"}
	}
	return r, nil
}

// ListForUser returns the requests a student sent or a professional received,
// newest first.
func (s *RequestService) ListForUser(ctx context.Context, actorID string) ([]db.ReferralRequest, error) {
	u, err := s.d.Store.GetUser(ctx, actorID)
	if err != nil {
		return nil, lifecycle.Remote("load user", err)
	}
	f := db.RequestFilter{StudentID: u.ID}
	if u.Role == lifecycle.RoleProfessional {
		f = db.RequestFilter{ProfessionalID: u.ID}
	}
	out, err := s.d.Store.ListRequests(ctx, f)
	if err != nil {
		return nil, lifecycle.Remote("list requests", err)
	}
	return out, nil
}

// Payment returns the payment recorded for a request, to its participants.
func (s *RequestService) Payment(ctx context.Context, id, actorID string) (*db.Payment, error) {
	if _, err := s.Get(ctx, id, actorID); err != nil {
		return nil, err
	}
	p, err := s.d.Store.GetPaymentByRequest(ctx, id)
	if err != nil {
		return nil, lifecycle.Remote("load payment", err)
	}
	return p, nil
}
