package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-referral/lifecycle"
	"go-referral/log"
	"go-referral/payment/db"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidMethod = errors.New("unsupported payment method")
	ErrMissingID     = errors.New("missing order id")
	ErrMissingUPI    = errors.New("upi handle required")
)

// Service runs the simulated gateway: an order is created pending and settled
// as paid once it is older than Delay.
type Service struct {
	store  db.OrderStore
	delay  time.Duration
	logger *log.Logger
	now    func() time.Time
}

func NewService(store db.OrderStore, delay time.Duration, logger *log.Logger) *Service {
	return &Service{store: store, delay: delay, logger: logger, now: time.Now}
}

func reference() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CreateOrder creates the order for id, or returns the existing one when id
// was already used.
func (s *Service) CreateOrder(ctx context.Context, id string, amount int64, method, upiHandle string) (*db.Order, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !lifecycle.PaymentMethod(method).Valid() {
		return nil, ErrInvalidMethod
	}
	if method == string(lifecycle.MethodUPI) && strings.TrimSpace(upiHandle) == "" {
		return nil, ErrMissingUPI
	}

	o, err := s.store.CreateOrder(ctx, &db.Order{
		ID:        id,
		Amount:    amount,
		Method:    method,
		UPIHandle: upiHandle,
		Status:    db.StatusPending,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	if s.delay <= 0 && o.Status == db.StatusPending {
		if _, err := s.Settle(ctx); err != nil {
			return nil, err
		}
		return s.store.GetOrder(ctx, id)
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*db.Order, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return s.store.GetOrder(ctx, id)
}

// Settle marks every pending order older than the delay as paid.
func (s *Service) Settle(ctx context.Context) (int, error) {
	now := s.now()
	orders, err := s.store.PendingBefore(ctx, now.Add(-s.delay))
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		if err := s.store.MarkPaid(ctx, o.ID, reference(), now); err != nil {
			return 0, err
		}
		s.logger.WithField("order_id", o.ID).WithField("amount", o.Amount).Info("order paid")
	}
	return len(orders), nil
}

// Run settles orders every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Settle(ctx); err != nil {
				s.logger.WithError(err).Warn("settle orders")
			}
		}
	}
}
