package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-referral/lifecycle"
	"go-referral/log"
	"go-referral/payment/db"
	"go-referral/payment/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedIsIdempotent(t *testing.T) {
	g := NewSimulated(time.Millisecond)
	c := Charge{IdempotencyKey: "r1", Amount: 7000, Method: lifecycle.MethodUPI, UPIHandle: "x@upi"}

	first, err := g.Charge(context.Background(), c)
	require.NoError(t, err)
	second, err := g.Charge(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "SIM-R1", first.Reference)
}

func TestSimulatedHonorsContext(t *testing.T) {
	g := NewSimulated(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Charge(ctx, Charge{IdempotencyKey: "r1", Amount: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func newPaymentService(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	svc := order.NewService(db.NewMemoryStore(), delay, log.Discard())
	mux := http.NewServeMux()
	order.RegisterHandlers(mux, svc)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Run(ctx, 5*time.Millisecond)
	return srv
}

func TestHTTPChargePollsUntilPaid(t *testing.T) {
	srv := newPaymentService(t, 20*time.Millisecond)
	g := NewHTTP(srv.URL)
	g.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r, err := g.Charge(ctx, Charge{IdempotencyKey: "req-1", Amount: 5000, Method: lifecycle.MethodCard})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Reference)

	again, err := g.Charge(ctx, Charge{IdempotencyKey: "req-1", Amount: 5000, Method: lifecycle.MethodCard})
	require.NoError(t, err)
	assert.Equal(t, r.Reference, again.Reference)
}

func TestHTTPChargeRejected(t *testing.T) {
	srv := newPaymentService(t, 0)
	g := NewHTTP(srv.URL)

	_, err := g.Charge(context.Background(), Charge{IdempotencyKey: "req-2", Amount: 5000, Method: lifecycle.MethodUPI})
	assert.ErrorContains(t, err, "upi handle required")
}

func TestHTTPChargeGivesUpAfterTimeout(t *testing.T) {
	srv := newPaymentService(t, time.Hour)
	g := NewHTTP(srv.URL)
	g.PollInterval = 5 * time.Millisecond
	g.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := g.Charge(context.Background(), Charge{IdempotencyKey: "req-3", Amount: 5000, Method: lifecycle.MethodCard})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
