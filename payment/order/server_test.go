package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-referral/log"
	"go-referral/payment/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(delay time.Duration) (*Service, http.Handler) {
	svc := NewService(db.NewMemoryStore(), delay, log.Discard())
	mux := http.NewServeMux()
	RegisterHandlers(mux, svc)
	return svc, mux
}

func call(h http.Handler, method, target string) (*httptest.ResponseRecorder, db.Order) {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var o db.Order
	json.Unmarshal(w.Body.Bytes(), &o)
	return w, o
}

func TestCreateOrderValidation(t *testing.T) {
	_, h := newHandler(time.Hour)

	cases := map[string]string{
		"bad amount":     CreatePath + "?id=a&amount=x&method=card",
		"zero amount":    CreatePath + "?id=a&amount=0&method=card",
		"missing id":     CreatePath + "?amount=10&method=card",
		"bad method":     CreatePath + "?id=a&amount=10&method=cash",
		"upi, no handle": CreatePath + "?id=a&amount=10&method=upi",
	}
	for name, target := range cases {
		w, _ := call(h, http.MethodPost, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestCreateOrderIsIdempotentAndSettles(t *testing.T) {
	svc, h := newHandler(time.Hour)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	w, o := call(h, http.MethodPost, CreatePath+"?id=r1&amount=7000&method=upi&upi_handle=x@upi")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.StatusPending, o.Status)

	_, again := call(h, http.MethodPost, CreatePath+"?id=r1&amount=9999&method=card")
	assert.Equal(t, int64(7000), again.Amount)

	n, err := svc.Settle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	clock = clock.Add(2 * time.Hour)
	n, err = svc.Settle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	w, o = call(h, http.MethodGet, StatusPath+"?id=r1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.StatusPaid, o.Status)
	assert.NotEmpty(t, o.Reference)
}

func TestOrderStatusErrors(t *testing.T) {
	_, h := newHandler(0)

	w, _ := call(h, http.MethodGet, StatusPath)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(h, http.MethodGet, StatusPath+"?id=nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = call(h, http.MethodDelete, StatusPath+"?id=nope")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestZeroDelayPaysImmediately(t *testing.T) {
	_, h := newHandler(0)
	w, o := call(h, http.MethodPost, CreatePath+"?id=r9&amount=10&method=bank")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.StatusPaid, o.Status)
}
