package db

import (
	"time"

	"go-referral/lifecycle"
)

type User struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:191" json:"email"`
	Password     string         `json:"-"`
	Role         lifecycle.Role `gorm:"size:20;index" json:"role"`
	DisplayName  string         `json:"display_name"`
	PhotoURL     string         `json:"photo_url"`
	ReferralCode string         `gorm:"uniqueIndex;size:32" json:"referral_code"`

	ReferralsGenerated  int64 `json:"referrals_generated"`
	ActiveReferrals     int64 `json:"active_referrals"`
	SuccessfulReferrals int64 `json:"successful_referrals"`
	TotalRewards        int64 `json:"total_rewards"`
	SentRequests        int64 `json:"sent_requests"`

	// student
	Institution     string `json:"institution,omitempty"`
	Major           string `json:"major,omitempty"`
	GraduationYear  string `json:"graduation_year,omitempty"`
	StudentNumber   string `json:"student_number,omitempty"`
	CurrentSemester string `json:"current_semester,omitempty"`

	// professional
	Company    string   `gorm:"index;size:191" json:"company,omitempty"`
	JobTitle   string   `json:"job_title,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Industry   string   `json:"industry,omitempty"`
	Skills     []string `gorm:"serializer:json" json:"skills,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Name is what other users see, falling back to the email like the app did.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

type Referral struct {
	ID           string                   `gorm:"primaryKey;size:36" json:"id"`
	ReferrerID   string                   `gorm:"index;size:36" json:"referrer_id"`
	ReferrerRole lifecycle.Role           `gorm:"size:20" json:"referrer_role"`
	RefereeEmail string                   `json:"referee_email"`
	RefereeName  string                   `json:"referee_name"`
	JobType      string                   `json:"job_type"`
	Status       lifecycle.ReferralStatus `gorm:"size:20" json:"status"`
	CreatedAt    time.Time                `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type ReferralRequest struct {
	ID               string `gorm:"primaryKey;size:36" json:"id"`
	StudentID        string `gorm:"index;size:36" json:"student_id"`
	StudentName      string `json:"student_name"`
	StudentEmail     string `json:"student_email"`
	ProfessionalID   string `gorm:"index;size:36" json:"professional_id"`
	ProfessionalName string `json:"professional_name"`
	JobPosition      string `json:"job_position"`
	Company          string `json:"company"`
	Message          string `json:"message,omitempty"`

	Status lifecycle.RequestStatus `gorm:"size:32;index" json:"status"`

	PaymentRequired     *bool                   `json:"payment_required"`
	PaymentAmount       *int64                  `json:"payment_amount"`
	ProfessionalMessage string                  `json:"professional_message,omitempty"`
	PaymentMethod       lifecycle.PaymentMethod `gorm:"size:16" json:"payment_method,omitempty"`
	UPIHandle           string                  `json:"upi_handle,omitempty"`
	PaymentDate         *time.Time              `json:"payment_date,omitempty"`

	CompletionMessage string     `json:"completion_message,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CompletedBy       string     `gorm:"size:36" json:"completed_by,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy       string     `gorm:"size:36" json:"cancelled_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReferralOffer struct {
	ID                string                `gorm:"primaryKey;size:36" json:"id"`
	ProfessionalID    string                `gorm:"index;size:36" json:"professional_id"`
	ProfessionalName  string                `json:"professional_name"`
	ProfessionalEmail string                `json:"professional_email"`
	StudentID         string                `gorm:"index;size:36" json:"student_id"`
	StudentName       string                `json:"student_name"`
	StudentEmail      string                `json:"student_email"`
	JobPosition       string                `json:"job_position"`
	Company           string                `json:"company"`
	Message           string                `json:"message,omitempty"`
	Status            lifecycle.OfferStatus `gorm:"size:20;index" json:"status"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
	CreatedAt         time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// Payment records a settled payment demand. Amount is in the smallest currency unit.
type Payment struct {
	ID          string                  `gorm:"primaryKey;size:36" json:"id"`
	RequestID   string                  `gorm:"uniqueIndex;size:36" json:"request_id"`
	PayerID     string                  `gorm:"index;size:36" json:"payer_id"`
	PayeeID     string                  `gorm:"index;size:36" json:"payee_id"`
	Method      lifecycle.PaymentMethod `gorm:"size:16" json:"method"`
	UPIHandle   string                  `json:"upi_handle,omitempty"`
	Amount      int64                   `json:"amount"`
	Reference   string                  `json:"reference"`
	CompletedAt time.Time               `json:"completed_at"`
}

// PasswordReset is keyed by the sha256 of the mailed token.
type PasswordReset struct {
	TokenHash string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"index;size:36"`
	ExpiresAt time.Time
}

// RevokedToken keeps signed-out JWTs until they would have expired anyway.
type RevokedToken struct {
	TokenHash string `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time
}
