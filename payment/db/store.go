package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("order not found")

type OrderStore interface {
	// CreateOrder inserts o unless an order with the same id exists, in which
	// case the existing order is returned.
	CreateOrder(ctx context.Context, o *Order) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	// PendingBefore lists pending orders created before t.
	PendingBefore(ctx context.Context, t time.Time) ([]Order, error)
	MarkPaid(ctx context.Context, id, reference string, at time.Time) error
}

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func Sync(db *gorm.DB) error {
	return db.AutoMigrate(&Order{})
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateOrder(ctx context.Context, o *Order) (*Order, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(o)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return o, nil
	}
	return s.GetOrder(ctx, o.ID)
}

func (s *GormStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *GormStore) PendingBefore(ctx context.Context, t time.Time) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("status = ?", StatusPending).
		Where("created_at <= ?", t).
		Find(&orders).Error
	return orders, err
}

func (s *GormStore) MarkPaid(ctx context.Context, id, reference string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{"status": StatusPaid, "reference": reference, "paid_at": at}).Error
}

type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order)}
}

func (s *MemoryStore) CreateOrder(ctx context.Context, o *Order) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.orders[o.ID]; ok {
		return &existing, nil
	}
	s.orders[o.ID] = *o
	c := *o
	return &c, nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) PendingBefore(ctx context.Context, t time.Time) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Order
	for _, o := range s.orders {
		if o.Status == StatusPending && !o.CreatedAt.After(t) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, id, reference string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusPending {
		return nil
	}
	o.Status = StatusPaid
	o.Reference = reference
	o.PaidAt = &at
	s.orders[id] = o
	return nil
}
