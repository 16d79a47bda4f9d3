package firestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatplanner/internal/adapters/storage/firestore"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

// Runs only against the Firestore emulator.
func newEmulatorStore(t *testing.T) *firestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := firestore.NewStore(context.Background(), "chatplanner-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := firestore.NewStore(context.Background(), "")
	assert.Error(t, err)
}

func TestUserRoundTrip(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	id := domain.UserID("user-" + time.Now().Format("150405.000000"))

	_, err := s.GetUser(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveUser(ctx, &domain.User{ClientID: id, CalendarID: "primary", CreatedAt: created}))
	require.NoError(t, s.SaveUser(ctx, &domain.User{ClientID: id, CalendarID: "work", CreatedAt: created.Add(time.Hour)}))

	u, err := s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "work", u.CalendarID)
	assert.True(t, created.Equal(u.CreatedAt))

	require.NoError(t, s.DeleteUser(ctx, id))
	assert.ErrorIs(t, s.DeleteUser(ctx, id), domain.ErrNotFound)
}

func TestSessionRoundTrip(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	id := domain.UserID("session-" + time.Now().Format("150405.000000"))

	_, err := s.GetSession(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveSession(ctx, &domain.Session{UserID: id, State: domain.StateAwaitingTaskServiceToken, PendingCalendarID: "primary"}))

	got, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingTaskServiceToken, got.State)
	assert.Equal(t, "primary", got.PendingCalendarID)
}
