// Package gateway charges a student for a payment demand.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-referral/lifecycle"
	"go-referral/payment/db"
	"go-referral/payment/order"
)

type Charge struct {
	// IdempotencyKey identifies the charge; retrying with the same key never
	// charges twice. The referral service uses the request id.
	IdempotencyKey string
	Amount         int64
	Method         lifecycle.PaymentMethod
	UPIHandle      string
}

type Receipt struct {
	Reference string
	PaidAt    time.Time
}

type Gateway interface {
	Charge(ctx context.Context, c Charge) (Receipt, error)
}

// Simulated waits Delay and succeeds, standing in for a real provider.
type Simulated struct {
	Delay time.Duration

	mu   sync.Mutex
	paid map[string]Receipt
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay, paid: make(map[string]Receipt)}
}

func (s *Simulated) Charge(ctx context.Context, c Charge) (Receipt, error) {
	s.mu.Lock()
	r, ok := s.paid[c.IdempotencyKey]
	s.mu.Unlock()
	if ok {
		return r, nil
	}

	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.paid[c.IdempotencyKey]; ok {
		return r, nil
	}
	r = Receipt{Reference: "SIM-" + strings.ToUpper(c.IdempotencyKey), PaidAt: time.Now()}
	s.paid[c.IdempotencyKey] = r
	return r, nil
}

// HTTP charges through the payment service: it creates the order and polls
// its status until it is paid, Timeout passes or ctx ends.
type HTTP struct {
	BaseURL      string
	Client       *http.Client
	PollInterval time.Duration
	// Timeout bounds one Charge, creation and polling included. Zero means no
	// bound beyond ctx.
	Timeout time.Duration
}

func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Client:       &http.Client{Timeout: 10 * time.Second},
		PollInterval: 500 * time.Millisecond,
		Timeout:      time.Minute,
	}
}

func (h *HTTP) do(ctx context.Context, method, path string, q url.Values) (*db.Order, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("payment service: %s: %s", resp.Status, body.Error)
	}

	var o db.Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}

func (h *HTTP) Charge(ctx context.Context, c Charge) (Receipt, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("id", c.IdempotencyKey)
	q.Set("amount", strconv.FormatInt(c.Amount, 10))
	q.Set("method", string(c.Method))
	if c.UPIHandle != "" {
		q.Set("upi_handle", c.UPIHandle)
	}

	o, err := h.do(ctx, http.MethodPost, order.CreatePath, q)
	if err != nil {
		return Receipt{}, err
	}

	ticker := time.NewTicker(h.PollInterval)
	defer ticker.Stop()
	for o.Status != db.StatusPaid {
		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("order %s not settled: %w", c.IdempotencyKey, ctx.Err())
		case <-ticker.C:
		}
		o, err = h.do(ctx, http.MethodGet, order.StatusPath, url.Values{"id": {c.IdempotencyKey}})
		if err != nil {
			return Receipt{}, err
		}
	}

	r := Receipt{Reference: o.Reference, PaidAt: time.Now()}
	if o.PaidAt != nil {
		r.PaidAt = *o.PaidAt
	}
	return r, nil
}
