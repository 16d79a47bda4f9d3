package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

// Store keeps users and sessions in two top-level collections keyed by
// client id.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (PLANNER_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) usersCol() *firestore.CollectionRef {
	return s.client.Collection("users")
}

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type userDoc struct {
	CalendarID string    `firestore:"calendar_id"`
	TaskToken  string    `firestore:"task_token"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

type sessionDoc struct {
	State             string    `firestore:"state"`
	PendingCalendarID string    `firestore:"pending_calendar_id"`
	UpdatedAt         time.Time `firestore:"updated_at"`
}

func (d userDoc) toDomain(id string) *domain.User {
	return &domain.User{
		ClientID:   domain.UserID(id),
		CalendarID: d.CalendarID,
		TaskToken:  d.TaskToken,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	snap, err := s.usersCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetUser: %w", err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetUser decode: %w", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// SaveUser upserts u. created_at of an existing document is kept.
func (s *Store) SaveUser(ctx context.Context, u *domain.User) error {
	ref := s.usersCol().Doc(string(u.ClientID))

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc := userDoc{
			CalendarID: u.CalendarID,
			TaskToken:  u.TaskToken,
			CreatedAt:  u.CreatedAt,
			UpdatedAt:  u.UpdatedAt,
		}

		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var prev userDoc
			if err := snap.DataTo(&prev); err == nil && !prev.CreatedAt.IsZero() {
				doc.CreatedAt = prev.CreatedAt
			}
		case !notFound(err):
			return err
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return fmt.Errorf("firestore SaveUser: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id domain.UserID) error {
	_, err := s.usersCol().Doc(string(id)).Delete(ctx, firestore.Exists)
	if err != nil {
		if notFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore DeleteUser: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	q := s.usersCol().OrderBy(firestore.DocumentID, firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.User
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListUsers: %w", err)
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode userDoc: %w", err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	return out, nil
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) GetSession(ctx context.Context, id domain.UserID) (*domain.Session, error) {
	snap, err := s.sessionsCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return &domain.Session{
		UserID:            id,
		State:             domain.ConversationState(doc.State),
		PendingCalendarID: doc.PendingCalendarID,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		State:             string(session.State),
		PendingCalendarID: session.PendingCalendarID,
		UpdatedAt:         session.UpdatedAt,
	}

	_, err := s.sessionsCol().Doc(string(session.UserID)).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore SaveSession: %w", err)
	}
	return nil
}
