package db

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go-referral/lifecycle"

	"github.com/google/btree"
)

// table keeps records by id plus a btree ordering used for listing. Stored
// pointers are never mutated; an update replaces the pointer.
type table[T any] struct {
	byID  map[string]*T
	order *btree.BTreeG[*T]
	id    func(*T) string
}

func newTable[T any](id func(*T) string, less btree.LessFunc[*T]) *table[T] {
	return &table[T]{
		byID:  make(map[string]*T),
		order: btree.NewG(16, less),
		id:    id,
	}
}

func (t *table[T]) put(v *T) {
	if old, ok := t.byID[t.id(v)]; ok {
		t.order.Delete(old)
	}
	t.byID[t.id(v)] = v
	t.order.ReplaceOrInsert(v)
}

func (t *table[T]) get(id string) (*T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

func (t *table[T]) each(fn func(*T) bool) {
	t.order.Ascend(func(v *T) bool { return fn(v) })
}

func newestFirst[T any](created func(*T) time.Time, id func(*T) string) btree.LessFunc[*T] {
	return func(a, b *T) bool {
		ca, cb := created(a), created(b)
		if !ca.Equal(cb) {
			return ca.After(cb)
		}
		return id(a) < id(b)
	}
}

// MemoryStore is a Store held in process memory, used when no DSN is
// configured and by the tests. fn callbacks run under the store lock and must
// not call back into the store.
type MemoryStore struct {
	mu sync.RWMutex

	users     *table[User]
	referrals *table[Referral]
	requests  *table[ReferralRequest]
	offers    *table[ReferralOffer]
	payments  map[string]*Payment // by request id
	resets    map[string]PasswordReset
	revoked   map[string]time.Time

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: newTable(func(u *User) string { return u.ID }, func(a, b *User) bool {
			if a.DisplayName != b.DisplayName {
				return a.DisplayName < b.DisplayName
			}
			return a.ID < b.ID
		}),
		referrals: newTable(func(r *Referral) string { return r.ID },
			newestFirst(func(r *Referral) time.Time { return r.CreatedAt }, func(r *Referral) string { return r.ID })),
		requests: newTable(func(r *ReferralRequest) string { return r.ID },
			newestFirst(func(r *ReferralRequest) time.Time { return r.CreatedAt }, func(r *ReferralRequest) string { return r.ID })),
		offers: newTable(func(o *ReferralOffer) string { return o.ID },
			newestFirst(func(o *ReferralOffer) time.Time { return o.CreatedAt }, func(o *ReferralOffer) string { return o.ID })),
		payments: make(map[string]*Payment),
		resets:   make(map[string]PasswordReset),
		revoked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func cloneUser(u *User) *User {
	c := *u
	c.Skills = slices.Clone(u.Skills)
	return &c
}

func (s *MemoryStore) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users.get(u.ID); ok {
		return ErrDuplicate
	}
	for _, other := range s.users.byID {
		if strings.EqualFold(other.Email, u.Email) || (u.ReferralCode != "" && other.ReferralCode == u.ReferralCode) {
			return ErrDuplicate
		}
	}
	s.stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users.put(cloneUser(u))
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users.byID {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, lifecycle.ErrNotFound
}

func (s *MemoryStore) ReferralCodeTaken(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users.byID {
		if u.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, fn func(*User) error) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	next := cloneUser(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.users.put(next)
	return cloneUser(next), nil
}

func matchesUser(u *User, f UserFilter) bool {
	if f.Role != "" && string(u.Role) != f.Role {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	for _, field := range []string{u.DisplayName, u.Company, u.Institution, u.JobTitle} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []User
	s.users.each(func(u *User) bool {
		if matchesUser(u, f) {
			out = append(out, *cloneUser(u))
		}
		return f.Limit <= 0 || len(out) < f.Limit
	})
	return out, nil
}

func (s *MemoryStore) IncrCounter(ctx context.Context, userID, field string, delta int64) error {
	_, err := s.UpdateUser(ctx, userID, func(u *User) error {
		if !ValidCounter(field) {
			return lifecycle.Invalid("field", "unknown counter "+field)
		}
		u.setCounter(field, u.Counters()[field]+delta)
		return nil
	})
	return err
}

// SetCounter overwrites one counter, for seeding drift in tests.
func (s *MemoryStore) SetCounter(ctx context.Context, userID, field string, v int64) error {
	_, err := s.UpdateUser(ctx, userID, func(u *User) error {
		if !ValidCounter(field) {
			return lifecycle.Invalid("field", "unknown counter "+field)
		}
		u.setCounter(field, v)
		return nil
	})
	return err
}

func (s *MemoryStore) derivedLocked() map[string]Counters {
	out := make(map[string]Counters)
	bump := func(userID, field string) {
		if out[userID] == nil {
			out[userID] = Counters{FieldReferralsGenerated: 0, FieldSentRequests: 0}
		}
		out[userID][field]++
	}
	for _, r := range s.referrals.byID {
		bump(r.ReferrerID, FieldReferralsGenerated)
	}
	for _, r := range s.requests.byID {
		bump(r.StudentID, FieldSentRequests)
	}
	return out
}

func (s *MemoryStore) DerivedCounters(ctx context.Context, userID string) (Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.derivedLocked()[userID]
	if c == nil {
		c = Counters{FieldReferralsGenerated: 0, FieldSentRequests: 0}
	}
	return c, nil
}

// RecountCounters counts and writes under one lock, so a document created
// concurrently is either counted here or lands after the pass.
func (s *MemoryStore) RecountCounters(ctx context.Context, userIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	derived := s.derivedLocked()
	if len(userIDs) == 0 {
		for id := range s.users.byID {
			userIDs = append(userIDs, id)
		}
	}
	changed := 0
	for _, id := range userIDs {
		cur, ok := s.users.get(id)
		if !ok {
			continue
		}
		next := cloneUser(cur)
		n := 0
		for _, field := range DerivedFields {
			if want := derived[id][field]; next.Counters()[field] != want {
				next.setCounter(field, want)
				n++
			}
		}
		if n == 0 {
			continue
		}
		next.UpdatedAt = s.now()
		s.users.put(next)
		changed += n
	}
	return changed, nil
}

func (s *MemoryStore) CreateReferral(ctx context.Context, r *Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.referrals.get(r.ID); ok {
		return ErrDuplicate
	}
	s.stamp(&r.CreatedAt, &r.UpdatedAt)
	c := *r
	s.referrals.put(&c)
	return nil
}

func (s *MemoryStore) ListReferrals(ctx context.Context, ownerID string) ([]Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Referral
	s.referrals.each(func(r *Referral) bool {
		if r.ReferrerID == ownerID {
			out = append(out, *r)
		}
		return true
	})
	return out, nil
}

func (s *MemoryStore) UpdateReferral(ctx context.Context, id string, fn func(*Referral) error) (*Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.referrals.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	next := *cur
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.referrals.put(&next)
	out := next
	return &out, nil
}

func (s *MemoryStore) CreateRequest(ctx context.Context, r *ReferralRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests.get(r.ID); ok {
		return ErrDuplicate
	}
	s.stamp(&r.CreatedAt, &r.UpdatedAt)
	c := *r
	s.requests.put(&c)
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*ReferralRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *MemoryStore) ListRequests(ctx context.Context, f RequestFilter) ([]ReferralRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ReferralRequest
	s.requests.each(func(r *ReferralRequest) bool {
		if (f.StudentID == "" || r.StudentID == f.StudentID) &&
			(f.ProfessionalID == "" || r.ProfessionalID == f.ProfessionalID) {
			out = append(out, *r)
		}
		return true
	})
	return out, nil
}

func (s *MemoryStore) UpdateRequest(ctx context.Context, id string, fn func(*ReferralRequest) error) (*ReferralRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.requests.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	next := *cur
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.requests.put(&next)
	out := next
	return &out, nil
}

func (s *MemoryStore) CreateOffer(ctx context.Context, o *ReferralOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offers.get(o.ID); ok {
		return ErrDuplicate
	}
	s.stamp(&o.CreatedAt, &o.UpdatedAt)
	c := *o
	s.offers.put(&c)
	return nil
}

func (s *MemoryStore) GetOffer(ctx context.Context, id string) (*ReferralOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (s *MemoryStore) ListOffers(ctx context.Context, f OfferFilter) ([]ReferralOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ReferralOffer
	s.offers.each(func(o *ReferralOffer) bool {
		if (f.StudentID == "" || o.StudentID == f.StudentID) &&
			(f.ProfessionalID == "" || o.ProfessionalID == f.ProfessionalID) {
			out = append(out, *o)
		}
		return true
	})
	return out, nil
}

func (s *MemoryStore) UpdateOffer(ctx context.Context, id string, fn func(*ReferralOffer) error) (*ReferralOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.offers.get(id)
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	next := *cur
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.offers.put(&next)
	out := next
	return &out, nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.RequestID]; ok {
		return ErrDuplicate
	}
	c := *p
	s.payments[p.RequestID] = &c
	return nil
}

func (s *MemoryStore) GetPaymentByRequest(ctx context.Context, requestID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[requestID]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) CreatePasswordReset(ctx context.Context, r *PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets[r.TokenHash] = *r
	return nil
}

func (s *MemoryStore) TakePasswordReset(ctx context.Context, hash string) (*PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resets[hash]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	delete(s.resets, hash)
	return &r, nil
}

func (s *MemoryStore) RevokeToken(ctx context.Context, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[hash] = expiresAt
	return nil
}

func (s *MemoryStore) IsRevoked(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[hash]
	return ok, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, h)
		}
	}
	for t, r := range s.resets {
		if r.ExpiresAt.Before(now) {
			delete(s.resets, t)
		}
	}
	return nil
}
