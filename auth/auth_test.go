package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"go-referral/analytics"
	"go-referral/lifecycle"
	"go-referral/log"
	"go-referral/web/db"
	"go-referral/web/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *db.MemoryStore, *email.Outbox) {
	t.Helper()
	store := db.NewMemoryStore()
	outbox := &email.Outbox{}
	svc := NewService(store, Config{Secret: "test-secret", CodePrefix: "REFER", ResetURL: "http://app/reset"},
		outbox, analytics.Nop{}, log.Discard())
	return svc, store, outbox
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	token, user, err := svc.SignUp(ctx, " Johnny@Example.com ", "secret1", lifecycle.RoleStudent,
		Profile{DisplayName: "Johnny", Institution: "MIT", Company: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "johnny@example.com", user.Email)
	assert.True(t, strings.HasPrefix(user.ReferralCode, "REFERJOH"))
	assert.Equal(t, "MIT", user.Institution)
	assert.Empty(t, user.Company)
	assert.NotEqual(t, "secret1", user.Password)

	id, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, lifecycle.RoleStudent, id.Role)

	_, again, err := svc.SignIn(ctx, "JOHNNY@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = svc.SignIn(ctx, "johnny@example.com", "wrong-pass")
	var ve *lifecycle.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSignUpValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
		role                  lifecycle.Role
		field                 string
	}{
		{"bad email", "nope", "secret1", lifecycle.RoleStudent, "email"},
		{"short password", "a@b.io", "123", lifecycle.RoleStudent, "password"},
		{"password over bcrypt limit", "a@b.io", strings.Repeat("p", 80), lifecycle.RoleStudent, "password"},
		{"bad role", "a@b.io", "secret1", "admin", "role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.SignUp(ctx, tc.email, tc.password, tc.role, Profile{})
			var ve *lifecycle.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	_, _, err := svc.SignUp(ctx, "dup@b.io", "secret1", lifecycle.RoleProfessional, Profile{})
	require.NoError(t, err)
	_, _, err = svc.SignUp(ctx, "DUP@b.io", "secret1", lifecycle.RoleStudent, Profile{})
	var ve *lifecycle.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestSignOutRevokes(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	token, _, err := svc.SignUp(ctx, "p@x.io", "secret1", lifecycle.RoleProfessional, Profile{DisplayName: "Pat"})
	require.NoError(t, err)
	other, _, err := svc.SignIn(ctx, "p@x.io", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, token))
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Verify(ctx, other)
	assert.NoError(t, err)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	token, _, err := svc.SignUp(ctx, "s@x.io", "secret1", lifecycle.RoleStudent, Profile{})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	forged := NewService(db.NewMemoryStore(), Config{Secret: "other"}, &email.Outbox{}, analytics.Nop{}, log.Discard())
	_, err = forged.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPasswordReset(t *testing.T) {
	svc, store, outbox := newService(t)
	ctx := context.Background()
	_, _, err := svc.SignUp(ctx, "s@x.io", "secret1", lifecycle.RoleStudent, Profile{})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "unknown@x.io"))
	assert.Empty(t, outbox.Messages())

	require.NoError(t, svc.ResetPassword(ctx, "s@x.io"))
	msgs := outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "s@x.io", msgs[0].To)

	start := strings.Index(msgs[0].Body, "http://")
	end := strings.Index(msgs[0].Body[start:], "\n")
	link, err := url.Parse(msgs[0].Body[start : start+end])
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	// only the hash is stored
	_, err = store.TakePasswordReset(ctx, token)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	err = svc.ConfirmReset(ctx, token, strings.Repeat("n", 73))
	var tooLong *lifecycle.ValidationError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, "password", tooLong.Field)

	require.NoError(t, svc.ConfirmReset(ctx, token, "newsecret"))
	_, _, err = svc.SignIn(ctx, "s@x.io", "newsecret")
	assert.NoError(t, err)

	err = svc.ConfirmReset(ctx, token, "another1")
	var ve *lifecycle.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPasswordResetExpired(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	_, user, err := svc.SignUp(ctx, "s@x.io", "secret1", lifecycle.RoleStudent, Profile{})
	require.NoError(t, err)

	require.NoError(t, store.CreatePasswordReset(ctx, &db.PasswordReset{TokenHash: hashToken("old"), UserID: user.ID, ExpiresAt: time.Now().Add(-time.Minute)}))
	err = svc.ConfirmReset(ctx, "old", "newsecret")
	var ve *lifecycle.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "token", ve.Field)
}
