// Package userdb stores user records and persisted sessions in a
// sqlite database.
//
// Email lookups go through an indexed 64-bit xxhash of the address,
// the address itself is compared afterwards to rule out collisions.
package userdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type (
	DB struct {
		db  *sql.DB
		now func() time.Time
	}

	Field string

	// Change updates a single column of a user record.
	Change struct {
		column string
		value  interface{}
	}
)

const (
	ByID         Field = "user_id"
	ByEmail      Field = "email"
	BySessionID  Field = "session_id"
	ByResetToken Field = "reset_token"
)

var (
	//go:embed migrations/*.sql
	migrations embed.FS
)

const userColumns = `user_id, email, hashed_password, first_name, last_name, session_id, reset_token, created_at, updated_at`

// Open opens (creating if needed) the database stored at path and
// applies any pending migration.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("unable to create directory %v to store users, cause %w", dir, err)
		}
	}
	connstr := fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&mode=rwc", path)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", path, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping user database %v, cause %w", path, err)
	}
	err = migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to migrate user database %v, cause %w", path, err)
	}
	return &DB{db: conn, now: time.Now}, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

// AddUser stores a new user, emails are unique.
func (d *DB) AddUser(ctx context.Context, email, hashedPassword string) (*User, error) {
	now := d.now()
	u := &User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := d.db.ExecContext(ctx, `insert into users(user_id, email, email_hash64, hashed_password, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?)`, u.ID, u.Email, emailHash(email), u.HashedPassword, now.UnixNano(), now.UnixNano())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return nil, DuplicateEmail{Email: email}
	} else if err != nil {
		return nil, fmt.Errorf("unable to add user %v, cause %w", email, err)
	}
	return u, nil
}

// FindUserBy returns the first user whose field matches value.
func (d *DB) FindUserBy(ctx context.Context, field Field, value string) (*User, error) {
	var row *sql.Row
	switch field {
	case ByEmail:
		row = d.db.QueryRowContext(ctx, `select `+userColumns+` from users where email_hash64 = ? and email = ?`, emailHash(value), value)
	case ByID, BySessionID, ByResetToken:
		row = d.db.QueryRowContext(ctx, `select `+userColumns+` from users where `+string(field)+` = ?`, value)
	default:
		return nil, InvalidField{Field: field}
	}
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, UserNotFound{Field: field, Value: value}
	} else if err != nil {
		return nil, fmt.Errorf("unable to find user by %v, cause %w", field, err)
	}
	return u, nil
}

// UpdateUser applies every change to the user identified by id.
func (d *DB) UpdateUser(ctx context.Context, id string, changes ...Change) error {
	if len(changes) == 0 {
		return nil
	}
	sets := make([]string, 0, len(changes)+1)
	args := make([]interface{}, 0, len(changes)+2)
	for _, c := range changes {
		sets = append(sets, c.column+" = ?")
		args = append(args, c.value)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, d.now().UnixNano(), id)
	res, err := d.db.ExecContext(ctx, `update users set `+strings.Join(sets, ", ")+` where user_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", id, err)
	} else if n == 0 {
		return UserNotFound{Field: ByID, Value: id}
	}
	return nil
}

func (d *DB) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := d.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at asc, email asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list users, cause %w", err)
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user, cause %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unable to count users, cause %w", err)
	}
	return n, nil
}

func SetHashedPassword(hash string) Change {
	return Change{column: "hashed_password", value: hash}
}

// SetSessionID binds id to the user, an empty id clears it.
func SetSessionID(id string) Change {
	return Change{column: "session_id", value: nullable(id)}
}

// SetResetToken stores token on the user, an empty token clears it.
func SetResetToken(token string) Change {
	return Change{column: "reset_token", value: nullable(token)}
}

func SetFirstName(name string) Change {
	return Change{column: "first_name", value: name}
}

func SetLastName(name string) Change {
	return Change{column: "last_name", value: name}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*User, error) {
	var u User
	var sessionID, resetToken sql.NullString
	var created, updated int64
	err := s.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FirstName, &u.LastName, &sessionID, &resetToken, &created, &updated)
	if err != nil {
		return nil, err
	}
	u.SessionID = sessionID.String
	u.ResetToken = resetToken.String
	u.CreatedAt = time.Unix(0, created)
	u.UpdatedAt = time.Unix(0, updated)
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func emailHash(email string) int64 {
	return int64(xxhash.Sum64String(email))
}
