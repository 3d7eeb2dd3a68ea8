package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-referral/lifecycle"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps the documents in MySQL. Updates run inside a transaction
// holding a row lock so concurrent transitions of the same record serialize.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return lifecycle.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// lockAndSave loads the row with SELECT ... FOR UPDATE, hands it to fn and
// saves it in the same transaction.
func lockAndSave[T any](ctx context.Context, db *gorm.DB, id string, fn func(*T) error) (*T, error) {
	var rec T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) ReferralCodeTaken(ctx context.Context, code string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).Where("referral_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) UpdateUser(ctx context.Context, id string, fn func(*User) error) (*User, error) {
	return lockAndSave(ctx, s.db, id, fn)
}

func (s *GormStore) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	q := s.db.WithContext(ctx).Model(&User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("display_name LIKE ? OR company LIKE ? OR institution LIKE ? OR job_title LIKE ?",
			like, like, like, like)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var users []User
	err := q.Order("display_name").Find(&users).Error
	return users, err
}

func (s *GormStore) IncrCounter(ctx context.Context, userID, field string, delta int64) error {
	if !ValidCounter(field) {
		return fmt.Errorf("unknown counter %q", field)
	}
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).
		UpdateColumn(field, gorm.Expr(field+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// derivedSources maps each derived counter to the table and owner column it
// counts.
var derivedSources = []struct{ field, table, owner string }{
	{FieldReferralsGenerated, "referrals", "referrer_id"},
	{FieldSentRequests, "referral_requests", "student_id"},
}

func (s *GormStore) DerivedCounters(ctx context.Context, userID string) (Counters, error) {
	out := make(Counters, len(derivedSources))
	for _, d := range derivedSources {
		var n int64
		if err := s.db.WithContext(ctx).Table(d.table).Where(d.owner+" = ?", userID).Count(&n).Error; err != nil {
			return nil, err
		}
		out[d.field] = n
	}
	return out, nil
}

// RecountCounters updates each counter with a correlated COUNT(*) so the count
// and the write are the same statement.
func (s *GormStore) RecountCounters(ctx context.Context, userIDs []string) (int, error) {
	var changed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range derivedSources {
			count := fmt.Sprintf("(SELECT COUNT(*) FROM %s WHERE %s.%s = users.id)", d.table, d.table, d.owner)
			q := fmt.Sprintf("UPDATE users SET %s = %s WHERE %s <> %s", d.field, count, d.field, count)
			var args []any
			if len(userIDs) > 0 {
				q += " AND users.id IN ?"
				args = append(args, userIDs)
			}
			res := tx.Exec(q, args...)
			if res.Error != nil {
				return fmt.Errorf("recount %s: %w", d.field, res.Error)
			}
			changed += res.RowsAffected
		}
		return nil
	})
	return int(changed), err
}

func (s *GormStore) CreateReferral(ctx context.Context, r *Referral) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *GormStore) ListReferrals(ctx context.Context, ownerID string) ([]Referral, error) {
	var out []Referral
	err := s.db.WithContext(ctx).Where("referrer_id = ?", ownerID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *GormStore) UpdateReferral(ctx context.Context, id string, fn func(*Referral) error) (*Referral, error) {
	return lockAndSave(ctx, s.db, id, fn)
}

func (s *GormStore) CreateRequest(ctx context.Context, r *ReferralRequest) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *GormStore) GetRequest(ctx context.Context, id string) (*ReferralRequest, error) {
	var r ReferralRequest
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) ListRequests(ctx context.Context, f RequestFilter) ([]ReferralRequest, error) {
	q := s.db.WithContext(ctx)
	if f.StudentID != "" {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.ProfessionalID != "" {
		q = q.Where("professional_id = ?", f.ProfessionalID)
	}
	var out []ReferralRequest
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *GormStore) UpdateRequest(ctx context.Context, id string, fn func(*ReferralRequest) error) (*ReferralRequest, error) {
	return lockAndSave(ctx, s.db, id, fn)
}

func (s *GormStore) CreateOffer(ctx context.Context, o *ReferralOffer) error {
	return translate(s.db.WithContext(ctx).Create(o).Error)
}

func (s *GormStore) GetOffer(ctx context.Context, id string) (*ReferralOffer, error) {
	var o ReferralOffer
	if err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) ListOffers(ctx context.Context, f OfferFilter) ([]ReferralOffer, error) {
	q := s.db.WithContext(ctx)
	if f.StudentID != "" {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.ProfessionalID != "" {
		q = q.Where("professional_id = ?", f.ProfessionalID)
	}
	var out []ReferralOffer
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *GormStore) UpdateOffer(ctx context.Context, id string, fn func(*ReferralOffer) error) (*ReferralOffer, error) {
	return lockAndSave(ctx, s.db, id, fn)
}

func (s *GormStore) CreatePayment(ctx context.Context, p *Payment) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) GetPaymentByRequest(ctx context.Context, requestID string) (*Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "request_id = ?", requestID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) CreatePasswordReset(ctx context.Context, r *PasswordReset) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) TakePasswordReset(ctx context.Context, hash string) (*PasswordReset, error) {
	var r PasswordReset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "token_hash = ?", hash).Error; err != nil {
			return err
		}
		return tx.Delete(&PasswordReset{}, "token_hash = ?", hash).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) RevokeToken(ctx context.Context, hash string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevokedToken{TokenHash: hash, ExpiresAt: expiresAt}).Error
}

func (s *GormStore) IsRevoked(ctx context.Context, hash string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&RevokedToken{}).Where("token_hash = ?", hash).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) PurgeExpired(ctx context.Context, now time.Time) error {
	if err := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&RevokedToken{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&PasswordReset{}).Error
}
