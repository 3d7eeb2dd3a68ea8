package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go-referral/analytics"
	"go-referral/auth"
	"go-referral/log"
	"go-referral/payment/gateway"
	"go-referral/referral"
	"go-referral/web/controllers"
	"go-referral/web/db"
	"go-referral/web/email"
	"go-referral/web/jobs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := db.NewMemoryStore()
	logger := log.Discard()
	h := &controllers.Handler{
		Auth:       auth.NewService(store, auth.Config{Secret: "s", CodePrefix: "REF"}, &email.Outbox{}, analytics.Nop{}, logger),
		Services:   referral.New(referral.Deps{Store: store, Gateway: gateway.NewSimulated(time.Millisecond)}),
		Reconciler: jobs.NewReconciler(store, nil, logger),
		Logger:     logger,
		UPIPayee:   "referrals@upi",
	}
	srv := httptest.NewServer(controllers.Router(h, controllers.RouterConfig{}))
	t.Cleanup(srv.Close)
	return srv
}

type recorder struct {
	mu    sync.Mutex
	users []*db.User
}

func (r *recorder) listen(u *db.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	s := NewSession(New(srv.URL, srv.Client()))

	rec := &recorder{}
	s.Start(rec.listen)
	require.Len(t, rec.users, 1)
	assert.Nil(t, rec.users[0], "start replays the signed-out state")

	u, err := s.SignUp(ctx, SignUpRequest{Email: "sam@x.io", Password: "secret1", Role: "student", DisplayName: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "sam@x.io", u.Email)
	require.Len(t, rec.users, 2)
	assert.Equal(t, u.ID, rec.users[1].ID)

	require.NoError(t, s.SignOut(ctx))
	require.Len(t, rec.users, 3)
	assert.Nil(t, rec.users[2])
	assert.Nil(t, s.User())

	_, err = s.SignIn(ctx, "sam@x.io", "wrong1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Len(t, rec.users, 3)

	s.Stop()
	_, err = s.SignIn(ctx, "sam@x.io", "secret1")
	require.NoError(t, err)
	assert.Len(t, rec.users, 3, "no notifications after stop")
	assert.NotNil(t, s.User())
}

func TestClientRequestFlow(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	student := New(srv.URL, srv.Client())
	token, _, err := student.SignUp(ctx, SignUpRequest{Email: "sam@x.io", Password: "secret1", Role: "student"})
	require.NoError(t, err)
	student.SetToken(token)

	pro := New(srv.URL, srv.Client())
	token, proUser, err := pro.SignUp(ctx, SignUpRequest{Email: "pat@x.io", Password: "secret1", Role: "professional", Company: "Acme"})
	require.NoError(t, err)
	pro.SetToken(token)

	pros, err := student.Professionals(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, pros, 1)

	r, err := student.CreateRequest(ctx, proUser.ID, "Backend Engineer", "Acme", "hello")
	require.NoError(t, err)
	assert.Equal(t, "pending", string(r.Status))

	_, err = pro.RespondToRequest(ctx, r.ID, "request_payment", 2500, "")
	require.NoError(t, err)
	_, err = student.RespondToPayment(ctx, r.ID, "accept")
	require.NoError(t, err)

	png, err := student.PaymentQRCode(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	r, p, err := student.CompletePayment(ctx, r.ID, "card", "")
	require.NoError(t, err)
	assert.Equal(t, "payment_completed", string(r.Status))
	assert.Equal(t, int64(2500), p.Amount)

	got, err := pro.Payment(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Reference, got.Reference)

	r, err = student.CompleteRequest(ctx, r.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "completed", string(r.Status))

	_, err = student.CancelRequest(ctx, r.ID, "oops")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	list, err := pro.Requests(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClientOffersAndReferrals(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	student := New(srv.URL, srv.Client())
	token, stu, err := student.SignUp(ctx, SignUpRequest{Email: "sam@x.io", Password: "secret1", Role: "student"})
	require.NoError(t, err)
	student.SetToken(token)
	pro := New(srv.URL, srv.Client())
	token, _, err = pro.SignUp(ctx, SignUpRequest{Email: "pat@x.io", Password: "secret1", Role: "professional", Company: "Acme"})
	require.NoError(t, err)
	pro.SetToken(token)

	o, err := pro.CreateOffer(ctx, stu.ID, "Analyst", "", "")
	require.NoError(t, err)
	o, err = student.RespondToOffer(ctx, o.ID, "accept")
	require.NoError(t, err)
	o, err = pro.CompleteOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", string(o.Status))

	ref, err := student.CreateReferral(ctx, "f@x.io", "Fay", "design")
	require.NoError(t, err)
	_, err = student.UpdateReferralStatus(ctx, ref.ID, "completed")
	require.NoError(t, err)

	me, err := student.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), me.ReferralsGenerated)
	assert.Equal(t, int64(1), me.SuccessfulReferrals)

	_, err = student.UpdateProfile(ctx, map[string]any{"role": "professional"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "role", firstKey(apiErr.Fields))
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
