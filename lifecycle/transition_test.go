package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-referral/lifecycle"
)

var allRequestStatuses = []lifecycle.RequestStatus{
	lifecycle.RequestPending, lifecycle.RequestAccepted, lifecycle.RequestPaymentRequested,
	lifecycle.RequestPaymentAccepted, lifecycle.RequestPaymentRejected, lifecycle.RequestPaymentCompleted,
	lifecycle.RequestDeclined, lifecycle.RequestCompleted, lifecycle.RequestCancelled,
}

func isTransitionErr(err error) bool {
	var te *lifecycle.InvalidTransitionError
	return errors.As(err, &te)
}

func isAuthErr(err error) bool {
	var ae *lifecycle.AuthorizationError
	return errors.As(err, &ae)
}

func TestProfessionalActionsOnlyFromPending(t *testing.T) {
	for _, from := range allRequestStatuses {
		for _, action := range []lifecycle.RequestAction{lifecycle.RequestAccept, lifecycle.RequestRequestPayment, lifecycle.RequestDecline} {
			_, err := lifecycle.NextRequestStatus(from, action, lifecycle.PartyProfessional)
			if from == lifecycle.RequestPending {
				assert.NoError(t, err, "%s from %s", action, from)
			} else {
				assert.True(t, isTransitionErr(err), "%s from %s: %v", action, from, err)
			}
		}
	}
}

func TestPaymentResponseOnlyFromPaymentRequested(t *testing.T) {
	for _, from := range allRequestStatuses {
		for _, action := range []lifecycle.RequestAction{lifecycle.RequestAcceptPayment, lifecycle.RequestRejectPayment} {
			_, err := lifecycle.NextRequestStatus(from, action, lifecycle.PartyStudent)
			if from == lifecycle.RequestPaymentRequested {
				assert.NoError(t, err)
			} else {
				assert.True(t, isTransitionErr(err), "%s from %s", action, from)
			}
		}
	}
}

func TestCancelAllowedStatuses(t *testing.T) {
	allowed := map[lifecycle.RequestStatus]bool{
		lifecycle.RequestPending:          true,
		lifecycle.RequestAccepted:         true,
		lifecycle.RequestPaymentRequested: true,
	}
	for _, from := range allRequestStatuses {
		for _, party := range []lifecycle.Party{lifecycle.PartyStudent, lifecycle.PartyProfessional} {
			to, err := lifecycle.NextRequestStatus(from, lifecycle.RequestCancel, party)
			if allowed[from] {
				require.NoError(t, err)
				assert.Equal(t, lifecycle.RequestCancelled, to)
			} else {
				assert.True(t, isTransitionErr(err), "cancel from %s", from)
			}
		}
	}
}

func TestWrongPartyIsAuthorizationError(t *testing.T) {
	tests := []struct {
		from   lifecycle.RequestStatus
		action lifecycle.RequestAction
		party  lifecycle.Party
	}{
		{lifecycle.RequestPending, lifecycle.RequestAccept, lifecycle.PartyStudent},
		{lifecycle.RequestPending, lifecycle.RequestDecline, lifecycle.PartyStudent},
		{lifecycle.RequestPaymentRequested, lifecycle.RequestAcceptPayment, lifecycle.PartyProfessional},
		{lifecycle.RequestPaymentAccepted, lifecycle.RequestCompletePayment, lifecycle.PartyProfessional},
	}
	for _, tt := range tests {
		_, err := lifecycle.NextRequestStatus(tt.from, tt.action, tt.party)
		assert.True(t, isAuthErr(err), "%s %s as %s: %v", tt.from, tt.action, tt.party, err)
	}
}

func TestPaymentPathRoundTrip(t *testing.T) {
	steps := []struct {
		action lifecycle.RequestAction
		party  lifecycle.Party
		want   lifecycle.RequestStatus
	}{
		{lifecycle.RequestRequestPayment, lifecycle.PartyProfessional, lifecycle.RequestPaymentRequested},
		{lifecycle.RequestAcceptPayment, lifecycle.PartyStudent, lifecycle.RequestPaymentAccepted},
		{lifecycle.RequestCompletePayment, lifecycle.PartyStudent, lifecycle.RequestPaymentCompleted},
		{lifecycle.RequestComplete, lifecycle.PartyProfessional, lifecycle.RequestCompleted},
	}
	status := lifecycle.RequestPending
	for _, step := range steps {
		next, err := lifecycle.NextRequestStatus(status, step.action, step.party)
		require.NoError(t, err)
		require.Equal(t, step.want, next)
		status = next
	}
	assert.True(t, status.Terminal())

	_, err := lifecycle.NextRequestStatus(status, lifecycle.RequestComplete, lifecycle.PartyStudent)
	assert.True(t, isTransitionErr(err))
}

func TestTerminalStatuses(t *testing.T) {
	terminal := map[lifecycle.RequestStatus]bool{
		lifecycle.RequestDeclined:        true,
		lifecycle.RequestPaymentRejected: true,
		lifecycle.RequestCompleted:       true,
		lifecycle.RequestCancelled:       true,
	}
	for _, s := range allRequestStatuses {
		assert.Equal(t, terminal[s], s.Terminal(), string(s))
		assert.True(t, s.Valid())
	}
	assert.False(t, lifecycle.RequestStatus("paid").Valid())
}

func TestOfferTransitions(t *testing.T) {
	to, err := lifecycle.NextOfferStatus(lifecycle.OfferOffered, lifecycle.OfferDecline, lifecycle.PartyStudent)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OfferDeclined, to)
	assert.True(t, to.Terminal())

	_, err = lifecycle.NextOfferStatus(to, lifecycle.OfferComplete, lifecycle.PartyProfessional)
	assert.True(t, isTransitionErr(err))

	_, err = lifecycle.NextOfferStatus(lifecycle.OfferOffered, lifecycle.OfferAccept, lifecycle.PartyProfessional)
	assert.True(t, isAuthErr(err))

	to, err = lifecycle.NextOfferStatus(lifecycle.OfferAccepted, lifecycle.OfferComplete, lifecycle.PartyProfessional)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OfferCompleted, to)
}

func TestRequestActions(t *testing.T) {
	assert.ElementsMatch(t,
		[]lifecycle.RequestAction{lifecycle.RequestAccept, lifecycle.RequestRequestPayment, lifecycle.RequestDecline, lifecycle.RequestCancel},
		lifecycle.RequestActions(lifecycle.RequestPending, lifecycle.PartyProfessional))
	assert.Equal(t, []lifecycle.RequestAction{lifecycle.RequestCancel},
		lifecycle.RequestActions(lifecycle.RequestPending, lifecycle.PartyStudent))
	assert.Empty(t, lifecycle.RequestActions(lifecycle.RequestCompleted, lifecycle.PartyStudent))
}

func TestPartyOf(t *testing.T) {
	p, ok := lifecycle.PartyOf("s1", "s1", "p1")
	assert.True(t, ok)
	assert.Equal(t, lifecycle.PartyStudent, p)

	p, ok = lifecycle.PartyOf("p1", "s1", "p1")
	assert.True(t, ok)
	assert.Equal(t, lifecycle.PartyProfessional, p)

	_, ok = lifecycle.PartyOf("x", "s1", "p1")
	assert.False(t, ok)
	_, ok = lifecycle.PartyOf("", "", "p1")
	assert.False(t, ok)
}

func TestRemoteKeepsDomainErrors(t *testing.T) {
	v := lifecycle.Invalid("company", "required")
	assert.Same(t, v, lifecycle.Remote("op", v))
	assert.ErrorIs(t, lifecycle.Remote("op", lifecycle.ErrNotFound), lifecycle.ErrNotFound)

	base := errors.New("connection refused")
	err := lifecycle.Remote("get request", base)
	var re *lifecycle.RemoteError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, base)
	assert.Nil(t, lifecycle.Remote("op", nil))
}
