package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLRepo stores users in admin_users and sessions in admin_sessions.  The
// tables are created by database.EnsureTables.
type SQLRepo struct {
	db *sqlx.DB
}

// NewSQLRepo wraps db.
func NewSQLRepo(db *sqlx.DB) *SQLRepo { return &SQLRepo{db: db} }

var _ Repo = (*SQLRepo)(nil)

func (r *SQLRepo) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(
		`SELECT id, email, password_hash, created_at FROM admin_users WHERE email = ?`), email)
	return u, notFound(err)
}

func (r *SQLRepo) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(
		`SELECT id, email, password_hash, created_at FROM admin_users WHERE id = ?`), id)
	return u, notFound(err)
}

func (r *SQLRepo) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO admin_users (id, email, password_hash, created_at)
		 VALUES (:id, :email, :password_hash, :created_at)`, u)
	return err
}

func (r *SQLRepo) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO admin_sessions (id, user_id, browser, os, device, ip, created_at, expires_at, revoked)
		 VALUES (:id, :user_id, :browser, :os, :device, :ip, :created_at, :expires_at, :revoked)`, s)
	return err
}

func (r *SQLRepo) SessionByID(ctx context.Context, id string) (Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(
		`SELECT s.id, s.user_id, u.email, s.browser, s.os, s.device, s.ip,
		        s.created_at, s.expires_at, s.revoked
		   FROM admin_sessions s
		   JOIN admin_users u ON u.id = s.user_id
		  WHERE s.id = ?`), id)
	return s, notFound(err)
}

func (r *SQLRepo) RevokeSession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE admin_sessions SET revoked = ? WHERE id = ?`), true, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
