// Package lifecycle holds the referral state model: the closed set of statuses for
// requests and offers and the tables deciding which party may move a record from
// one status to the next.
package lifecycle

// Role is fixed when the account is created.
type Role string

const (
	RoleStudent      Role = "student"
	RoleProfessional Role = "professional"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleProfessional
}

// Party is the side of a request or offer an actor is on.
type Party string

const (
	PartyStudent      Party = "student"
	PartyProfessional Party = "professional"
)

// ReferralStatus is the loosely tracked status of a self-logged referral.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralActive    ReferralStatus = "active"
	ReferralCompleted ReferralStatus = "completed"
)

func (s ReferralStatus) Valid() bool {
	switch s {
	case ReferralPending, ReferralActive, ReferralCompleted:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending          RequestStatus = "pending"
	RequestAccepted         RequestStatus = "accepted"
	RequestPaymentRequested RequestStatus = "payment_requested"
	RequestPaymentAccepted  RequestStatus = "payment_accepted"
	RequestPaymentRejected  RequestStatus = "payment_rejected"
	RequestPaymentCompleted RequestStatus = "payment_completed"
	RequestDeclined         RequestStatus = "declined"
	RequestCompleted        RequestStatus = "completed"
	RequestCancelled        RequestStatus = "cancelled"
)

type RequestAction string

const (
	RequestAccept          RequestAction = "accept"
	RequestRequestPayment  RequestAction = "request_payment"
	RequestDecline         RequestAction = "decline"
	RequestAcceptPayment   RequestAction = "accept_payment"
	RequestRejectPayment   RequestAction = "reject_payment"
	RequestCompletePayment RequestAction = "complete_payment"
	RequestComplete        RequestAction = "complete"
	RequestCancel          RequestAction = "cancel"
)

type OfferStatus string

const (
	OfferOffered   OfferStatus = "offered"
	OfferAccepted  OfferStatus = "accepted"
	OfferDeclined  OfferStatus = "declined"
	OfferCompleted OfferStatus = "completed"
)

type OfferAction string

const (
	OfferAccept   OfferAction = "accept"
	OfferDecline  OfferAction = "decline"
	OfferComplete OfferAction = "complete"
)

// PaymentMethod is how a student settles a payment demand.
type PaymentMethod string

const (
	MethodUPI  PaymentMethod = "upi"
	MethodCard PaymentMethod = "card"
	MethodBank PaymentMethod = "bank"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCard, MethodBank:
		return true
	}
	return false
}
