package db

import (
	"context"
	"database/sql"
	"testing"

	"go-referral/lifecycle"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewGormStore(gdb), mock
}

func TestGormGetRequestNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM `referral_requests`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateRequestLocksRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `referral_requests`.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "professional_id", "status"}).
			AddRow("r1", "s1", "p1", "pending"))
	mock.ExpectExec("UPDATE `referral_requests` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r, err := s.UpdateRequest(context.Background(), "r1", func(r *ReferralRequest) error {
		r.Status = lifecycle.RequestAccepted
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RequestAccepted, r.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateRequestRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `referral_requests`.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("r1", "completed"))
	mock.ExpectRollback()

	_, err := s.UpdateRequest(context.Background(), "r1", func(r *ReferralRequest) error {
		_, err := lifecycle.NextRequestStatus(r.Status, lifecycle.RequestComplete, lifecycle.PartyStudent)
		return err
	})
	var te *lifecycle.InvalidTransitionError
	assert.ErrorAs(t, err, &te)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormIncrCounter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE `users` SET `sent_requests`=sent_requests \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.IncrCounter(context.Background(), "u1", FieldSentRequests, 1))

	mock.ExpectExec("UPDATE `users` SET `sent_requests`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.IncrCounter(context.Background(), "ghost", FieldSentRequests, 1), lifecycle.ErrNotFound)

	assert.Error(t, s.IncrCounter(context.Background(), "u1", "balance; DROP TABLE users", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListRequestsQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM `referral_requests` WHERE student_id = \\?").
		WillReturnError(sql.ErrConnDone)

	_, err := s.ListRequests(context.Background(), RequestFilter{StudentID: "s1"})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecountCountersInOneStatement(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET referrals_generated = \\(SELECT COUNT\\(\\*\\) FROM referrals WHERE referrals.referrer_id = users.id\\) " +
		"WHERE referrals_generated <> .* AND users.id IN \\(\\?,\\?\\)").
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET sent_requests = \\(SELECT COUNT\\(\\*\\) FROM referral_requests WHERE referral_requests.student_id = users.id\\)").
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := s.RecountCounters(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecountCountersRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET referrals_generated").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET sent_requests").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := s.RecountCounters(context.Background(), nil)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
