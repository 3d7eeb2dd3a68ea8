// Package auth signs users up and in, issues JWTs and handles password resets.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-referral/analytics"
	"go-referral/lifecycle"
	"go-referral/log"
	"go-referral/utils"
	"go-referral/web/db"
	"go-referral/web/email"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthenticated is returned for a missing, malformed, expired or revoked token.
var ErrUnauthenticated = errors.New("unauthenticated")

const (
	tokenTTL     = 30 * 24 * time.Hour
	resetTTL     = 24 * time.Hour
	minPassword  = 6
	maxPassword  = 72 // bcrypt input limit, in bytes
	codeAttempts = 5
	bcryptCost   = 10
	tokenIssuer  = "referral-service"
)

type Identity struct {
	UserID string
	Email  string
	Role   lifecycle.Role
}

type Claims struct {
	Email string         `json:"email"`
	Role  lifecycle.Role `json:"role"`
	jwt.RegisteredClaims
}

// Profile holds the optional fields given at signup.
type Profile struct {
	DisplayName     string
	Institution     string
	Major           string
	GraduationYear  string
	StudentNumber   string
	CurrentSemester string
	Company         string
	JobTitle        string
	Experience      string
	Industry        string
	Skills          []string
}

type Store interface {
	db.UserStore
	db.TokenStore
}

type Config struct {
	Secret     string
	CodePrefix string
	// ResetURL is the page the reset mail links to; the token is appended as ?token=.
	ResetURL string
}

type Service struct {
	store  Store
	cfg    Config
	mailer email.Sender
	events analytics.Sink
	logger *log.Logger
	now    func() time.Time
}

func NewService(store Store, cfg Config, mailer email.Sender, events analytics.Sink, logger *log.Logger) *Service {
	return &Service{store: store, cfg: cfg, mailer: mailer, events: events, logger: logger, now: time.Now}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func validCredentials(email, password string) error {
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return lifecycle.Invalid("email", "invalid email address")
	}
	return validPassword(password)
}

func validPassword(password string) error {
	if len(password) < minPassword {
		return lifecycle.Invalid("password", fmt.Sprintf("must be at least %d characters", minPassword))
	}
	if len(password) > maxPassword {
		return lifecycle.Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPassword))
	}
	return nil
}

func (s *Service) uniqueCode(ctx context.Context, name string) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := utils.ReferralCode(s.cfg.CodePrefix, name)
		taken, err := s.store.ReferralCodeTaken(ctx, code)
		if err != nil {
			return "", lifecycle.Remote("check referral code", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free referral code after %d attempts", codeAttempts)
}

// SignUp creates the account and returns a session token for it.
func (s *Service) SignUp(ctx context.Context, emailAddr, password string, role lifecycle.Role, p Profile) (string, *db.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if err := validCredentials(emailAddr, password); err != nil {
		return "", nil, err
	}
	if !role.Valid() {
		return "", nil, lifecycle.Invalid("role", "must be student or professional")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = strings.SplitN(emailAddr, "@", 2)[0]
	}
	code, err := s.uniqueCode(ctx, name)
	if err != nil {
		return "", nil, err
	}

	user := &db.User{
		ID:           utils.GenerateUUID(),
		Email:        emailAddr,
		Password:     string(hash),
		Role:         role,
		DisplayName:  name,
		ReferralCode: code,
	}
	switch role {
	case lifecycle.RoleStudent:
		user.Institution = p.Institution
		user.Major = p.Major
		user.GraduationYear = p.GraduationYear
		user.StudentNumber = p.StudentNumber
		user.CurrentSemester = p.CurrentSemester
	case lifecycle.RoleProfessional:
		user.Company = p.Company
		user.JobTitle = p.JobTitle
		user.Experience = p.Experience
		user.Industry = p.Industry
		user.Skills = p.Skills
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return "", nil, lifecycle.Invalid("email", "already registered")
		}
		return "", nil, lifecycle.Remote("create user", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	s.logger.WithUser(user.ID).WithField("role", role).Info("user signed up")
	s.events.LogEvent(ctx, "sign_up", analytics.Params{"user_id": user.ID, "role": string(role)})
	return token, user, nil
}

func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (string, *db.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(emailAddr))
	if errors.Is(err, lifecycle.ErrNotFound) {
		return "", nil, lifecycle.Invalid("", "invalid email or password")
	}
	if err != nil {
		return "", nil, lifecycle.Remote("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, lifecycle.Invalid("", "invalid email or password")
	}

	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	s.events.LogEvent(ctx, "login", analytics.Params{"user_id": user.ID})
	return token, user, nil
}

func (s *Service) issue(u *db.User) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utils.GenerateUUID(),
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer))
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// Verify resolves a bearer token to the identity it was issued for.
func (s *Service) Verify(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Identity{}, err
	}
	revoked, err := s.store.IsRevoked(ctx, hashToken(token))
	if err != nil {
		return Identity{}, lifecycle.Remote("check revocation", err)
	}
	if revoked {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// SignOut revokes token until it would have expired.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.store.RevokeToken(ctx, hashToken(token), claims.ExpiresAt.Time); err != nil {
		return lifecycle.Remote("revoke token", err)
	}
	s.events.LogEvent(ctx, "logout", analytics.Params{"user_id": claims.Subject})
	return nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ResetPassword mails a reset link. Unknown addresses succeed silently so the
// endpoint does not reveal which emails are registered.
func (s *Service) ResetPassword(ctx context.Context, emailAddr string) error {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(emailAddr))
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil
	}
	if err != nil {
		return lifecycle.Remote("load user", err)
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	if err := s.store.CreatePasswordReset(ctx, &db.PasswordReset{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(resetTTL),
	}); err != nil {
		return lifecycle.Remote("store reset", err)
	}

	link := s.cfg.ResetURL + "?token=" + token
	if err := s.mailer.Send(ctx, user.Email, email.PasswordResetSubject, email.PasswordResetBody(link)); err != nil {
		return lifecycle.Remote("send reset mail", err)
	}
	s.logger.WithUser(user.ID).Info("password reset requested")
	return nil
}

func (s *Service) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if err := validPassword(newPassword); err != nil {
		return err
	}
	reset, err := s.store.TakePasswordReset(ctx, hashToken(token))
	if errors.Is(err, lifecycle.ErrNotFound) {
		return lifecycle.Invalid("token", "invalid or used reset token")
	}
	if err != nil {
		return lifecycle.Remote("load reset", err)
	}
	if s.now().After(reset.ExpiresAt) {
		return lifecycle.Invalid("token", "reset token expired")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.store.UpdateUser(ctx, reset.UserID, func(u *db.User) error {
		u.Password = string(hash)
		return nil
	})
	return lifecycle.Remote("update password", err)
}
