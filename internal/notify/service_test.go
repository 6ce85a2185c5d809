package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocktrack/stocktrack/internal/shared"
	"github.com/stocktrack/stocktrack/internal/users"
)

type fakeNotifyRepo struct {
	notifications map[int64]Notification
	reads         map[int64]map[int64]bool // notification -> user -> read
	nextID        int64
}

func newFakeNotifyRepo() *fakeNotifyRepo {
	return &fakeNotifyRepo{notifications: map[int64]Notification{}, reads: map[int64]map[int64]bool{}}
}

func (f *fakeNotifyRepo) Create(_ context.Context, n Notification, recipientIDs []int64) (Notification, error) {
	f.nextID++
	n.ID = f.nextID
	f.notifications[n.ID] = n
	f.reads[n.ID] = map[int64]bool{}
	for _, id := range recipientIDs {
		f.reads[n.ID][id] = false
	}
	return n, nil
}

func (f *fakeNotifyRepo) ListForUser(_ context.Context, userID int64, _ int) ([]Notification, error) {
	var out []Notification
	for id, readers := range f.reads {
		read, ok := readers[userID]
		if !ok {
			continue
		}
		n := f.notifications[id]
		n.Read = read
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotifyRepo) MarkRead(_ context.Context, notificationID, userID int64) error {
	readers, ok := f.reads[notificationID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := readers[userID]; !ok {
		return ErrNotFound
	}
	readers[userID] = true
	return nil
}

func (f *fakeNotifyRepo) UnreadCount(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, readers := range f.reads {
		if read, ok := readers[userID]; ok && !read {
			count++
		}
	}
	return count, nil
}

type fakeDirectory struct {
	users []users.User
}

func (f *fakeDirectory) ListByIDs(_ context.Context, ids []int64) ([]users.User, error) {
	var out []users.User
	for _, u := range f.users {
		for _, id := range ids {
			if u.ID == id && u.IsActive {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeDirectory) ListActiveByRole(_ context.Context, role shared.Role) ([]users.User, error) {
	var out []users.User
	for _, u := range f.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeDirectory) ListActiveExcept(_ context.Context, userID int64) ([]users.User, error) {
	var out []users.User
	for _, u := range f.users {
		if u.ID != userID && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) EnqueueEmail(_ context.Context, to, _, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{users: []users.User{
		{ID: 1, Email: "admin@example.com", Role: shared.RoleAdmin, IsActive: true},
		{ID: 2, Email: "boss@example.com", Role: shared.RoleAdmin, IsActive: true},
		{ID: 3, Email: "staff@example.com", Role: shared.RoleStaff, IsActive: true},
		{ID: 4, Email: "gone@example.com", Role: shared.RoleStaff, IsActive: false},
	}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendFansOutToRole(t *testing.T) {
	repo := newFakeNotifyRepo()
	mailer := &fakeMailer{}
	svc := NewService(discardLogger(), repo, testDirectory(), mailer)

	created, err := svc.Send(context.Background(), Input{
		Title:      "Stock request submitted",
		Message:    "Request #9 awaits review",
		Type:       TypeRequestUpdate,
		Recipients: AllWithRole(shared.RoleAdmin),
	})
	require.NoError(t, err)
	require.Len(t, repo.reads[created.ID], 2)
	require.ElementsMatch(t, []string{"admin@example.com", "boss@example.com"}, mailer.sent)
}

func TestSendRejectsEmptyResolution(t *testing.T) {
	svc := NewService(discardLogger(), newFakeNotifyRepo(), &fakeDirectory{}, nil)

	_, err := svc.Send(context.Background(), Input{
		Title:      "Hello",
		Message:    "World",
		Type:       TypeSystem,
		Recipients: AllWithRole(shared.RoleAdmin),
	})
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestSendExplicitSkipsInactive(t *testing.T) {
	repo := newFakeNotifyRepo()
	svc := NewService(discardLogger(), repo, testDirectory(), nil)

	created, err := svc.Send(context.Background(), Input{
		Title:      "Heads up",
		Message:    "Unit moved",
		Type:       TypeSystem,
		Recipients: Explicit(3, 4),
	})
	require.NoError(t, err)
	require.Len(t, repo.reads[created.ID], 1)
}

func TestReadStateIsPerRecipient(t *testing.T) {
	repo := newFakeNotifyRepo()
	svc := NewService(discardLogger(), repo, testDirectory(), nil)

	created, err := svc.Send(context.Background(), Input{
		Title:      "Aging alert",
		Message:    "Unit SN-1 is aging",
		Type:       TypeStockAlert,
		Recipients: AllWithRole(shared.RoleAdmin),
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), created.ID, 1))

	first, err := svc.UnreadCount(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, first)

	second, err := svc.UnreadCount(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 1, second)
}

func TestMarkReadForNonRecipient(t *testing.T) {
	repo := newFakeNotifyRepo()
	svc := NewService(discardLogger(), repo, testDirectory(), nil)

	created, err := svc.Send(context.Background(), Input{
		Title:      "Admins only",
		Message:    "Private",
		Type:       TypeSystem,
		Recipients: AllWithRole(shared.RoleAdmin),
	})
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), created.ID, 3)
	require.ErrorIs(t, err, ErrNotFound)
}
