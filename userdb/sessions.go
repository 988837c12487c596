package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andrebq/authbox/sessions"
)

type (
	// SessionRecords persists sessions in the user_sessions table.
	SessionRecords struct {
		db *sql.DB
	}
)

func (d *DB) SessionRecords() *SessionRecords {
	return &SessionRecords{db: d.db}
}

func (s *SessionRecords) SaveSession(ctx context.Context, rec sessions.Record) error {
	_, err := s.db.ExecContext(ctx, `insert into user_sessions(session_id, user_id, created_at) values (?, ?, ?)`,
		rec.ID, rec.UserID, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("unable to save session for user %v, cause %w", rec.UserID, err)
	}
	return nil
}

func (s *SessionRecords) LookupSession(ctx context.Context, id string) (sessions.Record, bool, error) {
	rec := sessions.Record{ID: id}
	var created int64
	err := s.db.QueryRowContext(ctx, `select user_id, created_at from user_sessions where session_id = ?`, id).Scan(&rec.UserID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return sessions.Record{}, false, nil
	} else if err != nil {
		return sessions.Record{}, false, fmt.Errorf("unable to lookup session, cause %w", err)
	}
	rec.CreatedAt = time.Unix(0, created)
	return rec, true, nil
}

func (s *SessionRecords) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `delete from user_sessions where session_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("unable to delete session, cause %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to delete session, cause %w", err)
	}
	return n > 0, nil
}

func (s *SessionRecords) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from user_sessions where created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("unable to delete expired sessions, cause %w", err)
	}
	return res.RowsAffected()
}

// SessionsOf lists the persisted sessions owned by userID, oldest first.
func (s *SessionRecords) SessionsOf(ctx context.Context, userID string) ([]sessions.Record, error) {
	rows, err := s.db.QueryContext(ctx, `select session_id, created_at from user_sessions where user_id = ? order by created_at asc`, userID)
	if err != nil {
		return nil, fmt.Errorf("unable to list sessions of %v, cause %w", userID, err)
	}
	defer rows.Close()
	var out []sessions.Record
	for rows.Next() {
		rec := sessions.Record{UserID: userID}
		var created int64
		if err := rows.Scan(&rec.ID, &created); err != nil {
			return nil, fmt.Errorf("unable to scan session, cause %w", err)
		}
		rec.CreatedAt = time.Unix(0, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

var (
	_ sessions.Persister = (*SessionRecords)(nil)
	_ sessions.Expirer   = (*SessionRecords)(nil)
)
