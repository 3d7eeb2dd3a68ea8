package db

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned when a unique column (email, referral code, payment
// request id) already holds the value.
var ErrDuplicate = errors.New("duplicate record")

// Counter columns on users.
const (
	FieldReferralsGenerated  = "referrals_generated"
	FieldActiveReferrals     = "active_referrals"
	FieldSuccessfulReferrals = "successful_referrals"
	FieldTotalRewards        = "total_rewards"
	FieldSentRequests        = "sent_requests"
)

var CounterFields = []string{
	FieldReferralsGenerated,
	FieldActiveReferrals,
	FieldSuccessfulReferrals,
	FieldTotalRewards,
	FieldSentRequests,
}

// DerivedFields are the counters that can be rebuilt from documents: one
// referral per referrals_generated, one request per sent_requests.
var DerivedFields = []string{FieldReferralsGenerated, FieldSentRequests}

func ValidCounter(field string) bool {
	for _, f := range CounterFields {
		if f == field {
			return true
		}
	}
	return false
}

// Counters is a snapshot of a user's counter columns.
type Counters map[string]int64

func (u *User) Counters() Counters {
	return Counters{
		FieldReferralsGenerated:  u.ReferralsGenerated,
		FieldActiveReferrals:     u.ActiveReferrals,
		FieldSuccessfulReferrals: u.SuccessfulReferrals,
		FieldTotalRewards:        u.TotalRewards,
		FieldSentRequests:        u.SentRequests,
	}
}

func (u *User) setCounter(field string, v int64) {
	switch field {
	case FieldReferralsGenerated:
		u.ReferralsGenerated = v
	case FieldActiveReferrals:
		u.ActiveReferrals = v
	case FieldSuccessfulReferrals:
		u.SuccessfulReferrals = v
	case FieldTotalRewards:
		u.TotalRewards = v
	case FieldSentRequests:
		u.SentRequests = v
	}
}

type UserFilter struct {
	Role  string
	Query string // matched against name, company, institution
	Limit int
}

type RequestFilter struct {
	StudentID      string
	ProfessionalID string
}

type OfferFilter struct {
	StudentID      string
	ProfessionalID string
}

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ReferralCodeTaken(ctx context.Context, code string) (bool, error)
	// UpdateUser runs fn on the locked row and saves the result unless fn fails.
	UpdateUser(ctx context.Context, id string, fn func(*User) error) (*User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]User, error)

	IncrCounter(ctx context.Context, userID, field string, delta int64) error
	// RecountCounters rewrites the DerivedFields of the given users (all users
	// when empty) from the documents in one atomic step and returns how many
	// counter values changed.
	RecountCounters(ctx context.Context, userIDs []string) (int, error)
	// DerivedCounters counts the documents behind one user's DerivedFields.
	DerivedCounters(ctx context.Context, userID string) (Counters, error)
}

type ReferralStore interface {
	CreateReferral(ctx context.Context, r *Referral) error
	ListReferrals(ctx context.Context, ownerID string) ([]Referral, error)
	UpdateReferral(ctx context.Context, id string, fn func(*Referral) error) (*Referral, error)
}

type RequestStore interface {
	CreateRequest(ctx context.Context, r *ReferralRequest) error
	GetRequest(ctx context.Context, id string) (*ReferralRequest, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]ReferralRequest, error)
	UpdateRequest(ctx context.Context, id string, fn func(*ReferralRequest) error) (*ReferralRequest, error)
}

type OfferStore interface {
	CreateOffer(ctx context.Context, o *ReferralOffer) error
	GetOffer(ctx context.Context, id string) (*ReferralOffer, error)
	ListOffers(ctx context.Context, f OfferFilter) ([]ReferralOffer, error)
	UpdateOffer(ctx context.Context, id string, fn func(*ReferralOffer) error) (*ReferralOffer, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByRequest(ctx context.Context, requestID string) (*Payment, error)
}

type TokenStore interface {
	CreatePasswordReset(ctx context.Context, r *PasswordReset) error
	// TakePasswordReset returns the reset and deletes it so a token is used once.
	TakePasswordReset(ctx context.Context, hash string) (*PasswordReset, error)
	RevokeToken(ctx context.Context, hash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, hash string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) error
}

// Store is the document store of the referral service.
type Store interface {
	UserStore
	ReferralStore
	RequestStore
	OfferStore
	PaymentStore
	TokenStore
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
