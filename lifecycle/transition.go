package lifecycle

type rule[S ~string] struct {
	to      S
	parties []Party
}

func (r rule[S]) allows(p Party) bool {
	for _, q := range r.parties {
		if q == p {
			return true
		}
	}
	return false
}

var (
	both         = []Party{PartyStudent, PartyProfessional}
	student      = []Party{PartyStudent}
	professional = []Party{PartyProfessional}
)

var requestTable = map[RequestStatus]map[RequestAction]rule[RequestStatus]{
	RequestPending: {
		RequestAccept:         {RequestAccepted, professional},
		RequestRequestPayment: {RequestPaymentRequested, professional},
		RequestDecline:        {RequestDeclined, professional},
		RequestCancel:         {RequestCancelled, both},
	},
	RequestPaymentRequested: {
		RequestAcceptPayment: {RequestPaymentAccepted, student},
		RequestRejectPayment: {RequestPaymentRejected, student},
		RequestCancel:        {RequestCancelled, both},
	},
	RequestPaymentAccepted: {
		RequestCompletePayment: {RequestPaymentCompleted, student},
	},
	RequestAccepted: {
		RequestComplete: {RequestCompleted, both},
		RequestCancel:   {RequestCancelled, both},
	},
	RequestPaymentCompleted: {
		RequestComplete: {RequestCompleted, both},
	},
}

var offerTable = map[OfferStatus]map[OfferAction]rule[OfferStatus]{
	OfferOffered: {
		OfferAccept:  {OfferAccepted, student},
		OfferDecline: {OfferDeclined, student},
	},
	OfferAccepted: {
		OfferComplete: {OfferCompleted, professional},
	},
}

// NextRequestStatus returns the status a request moves to when party performs
// action from status from. The status check comes first, so an action that is
// never legal from from yields InvalidTransitionError whoever asks.
func NextRequestStatus(from RequestStatus, action RequestAction, party Party) (RequestStatus, error) {
	r, ok := requestTable[from][action]
	if !ok {
		return from, &InvalidTransitionError{Entity: "request", From: string(from), Action: string(action)}
	}
	if !r.allows(party) {
		return from, &AuthorizationError{Action: string(action) + " request as " + string(party)}
	}
	return r.to, nil
}

func NextOfferStatus(from OfferStatus, action OfferAction, party Party) (OfferStatus, error) {
	r, ok := offerTable[from][action]
	if !ok {
		return from, &InvalidTransitionError{Entity: "offer", From: string(from), Action: string(action)}
	}
	if !r.allows(party) {
		return from, &AuthorizationError{Action: string(action) + " offer as " + string(party)}
	}
	return r.to, nil
}

// Terminal reports whether no action is permitted from s.
func (s RequestStatus) Terminal() bool {
	return len(requestTable[s]) == 0
}

func (s OfferStatus) Terminal() bool {
	return len(offerTable[s]) == 0
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestPaymentRequested, RequestPaymentAccepted,
		RequestPaymentRejected, RequestPaymentCompleted, RequestDeclined, RequestCompleted,
		RequestCancelled:
		return true
	}
	return false
}

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferOffered, OfferAccepted, OfferDeclined, OfferCompleted:
		return true
	}
	return false
}

// RequestActions lists the actions party may take on a request in status s,
// used by clients to decide which controls to show.
func RequestActions(s RequestStatus, party Party) []RequestAction {
	var out []RequestAction
	for _, a := range []RequestAction{RequestAccept, RequestRequestPayment, RequestDecline,
		RequestAcceptPayment, RequestRejectPayment, RequestCompletePayment, RequestComplete, RequestCancel} {
		if r, ok := requestTable[s][a]; ok && r.allows(party) {
			out = append(out, a)
		}
	}
	return out
}

// PartyOf resolves which side of a student/professional pair actorID is on.
func PartyOf(actorID, studentID, professionalID string) (Party, bool) {
	switch actorID {
	case "":
		return "", false
	case studentID:
		return PartyStudent, true
	case professionalID:
		return PartyProfessional, true
	}
	return "", false
}
