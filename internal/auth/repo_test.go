package auth

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockRepo(t *testing.T) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLRepo(sqlx.NewDb(db, "mysql")), mock
}

func TestUserByEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, created_at FROM admin_users WHERE email = ?`)).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("1", "a@b.c", "hash", now))

	u, err := r.UserByEmail(context.Background(), "a@b.c")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if u.ID != "1" || u.PasswordHash != "hash" {
		t.Fatalf("user = %+v", u)
	}
}

func TestUserByEmail_NotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, email").WillReturnError(sql.ErrNoRows)

	if _, err := r.UserByEmail(context.Background(), "x@y.z"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admin_sessions SET revoked = ? WHERE id = ?`)).
		WithArgs(true, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admin_sessions SET revoked = ? WHERE id = ?`)).
		WithArgs(true, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := r.RevokeSession(context.Background(), "s1"); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if err := r.RevokeSession(context.Background(), "gone"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO admin_sessions").
		WithArgs("s1", "u1", "Chrome", "Windows", "Desktop", "10.0.0.1", sqlmock.AnyArg(), sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := r.CreateSession(context.Background(), Session{
		ID: "s1", UserID: "u1", Browser: "Chrome", OS: "Windows", Device: "Desktop", IP: "10.0.0.1",
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}
