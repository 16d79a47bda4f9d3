// Package sqlite keeps users and sessions in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

// Store implements domain.UserStore and domain.SessionStore.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		client_id   TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL,
		task_token  TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		client_id           TEXT PRIMARY KEY,
		state               TEXT NOT NULL,
		pending_calendar_id TEXT NOT NULL DEFAULT '',
		updated_at          TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT client_id, calendar_id, task_token, created_at, updated_at FROM users WHERE client_id = ?`,
		string(id),
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SaveUser upserts u. Idempotent via ON CONFLICT; created_at is kept.
func (s *Store) SaveUser(ctx context.Context, u *domain.User) error {
	return writeBackoff.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (client_id, calendar_id, task_token, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(client_id) DO UPDATE SET
			   calendar_id = excluded.calendar_id,
			   task_token  = excluded.task_token,
			   updated_at  = excluded.updated_at`,
			string(u.ClientID), u.CalendarID, u.TaskToken, formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
		)
		return err
	})
}

func (s *Store) DeleteUser(ctx context.Context, id domain.UserID) error {
	var n int64
	err := writeBackoff.do(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE client_id = ?`, string(id))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	q := `SELECT client_id, calendar_id, task_token, created_at, updated_at FROM users ORDER BY client_id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*domain.User, error) {
	var (
		u                domain.User
		id               string
		created, updated string
	)
	if err := sc.Scan(&id, &u.CalendarID, &u.TaskToken, &created, &updated); err != nil {
		return nil, err
	}
	u.ClientID = domain.UserID(id)
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *Store) GetSession(ctx context.Context, id domain.UserID) (*domain.Session, error) {
	var state, pending, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT state, pending_calendar_id, updated_at FROM sessions WHERE client_id = ?`,
		string(id),
	).Scan(&state, &pending, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &domain.Session{
		UserID:            id,
		State:             domain.ConversationState(state),
		PendingCalendarID: pending,
		UpdatedAt:         parseTime(updated),
	}, nil
}

func (s *Store) SaveSession(ctx context.Context, sess *domain.Session) error {
	return writeBackoff.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sessions (client_id, state, pending_calendar_id, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(client_id) DO UPDATE SET
			   state = excluded.state,
			   pending_calendar_id = excluded.pending_calendar_id,
			   updated_at = excluded.updated_at`,
			string(sess.UserID), string(sess.State), sess.PendingCalendarID, formatTime(sess.UpdatedAt),
		)
		return err
	})
}
