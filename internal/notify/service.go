package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stocktrack/stocktrack/internal/shared"
	"github.com/stocktrack/stocktrack/internal/users"
)

// RepositoryPort describes notification persistence.
type RepositoryPort interface {
	Create(ctx context.Context, n Notification, recipientIDs []int64) (Notification, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// UsersPort resolves recipient selections against the user directory.
type UsersPort interface {
	ListByIDs(ctx context.Context, ids []int64) ([]users.User, error)
	ListActiveByRole(ctx context.Context, role shared.Role) ([]users.User, error)
	ListActiveExcept(ctx context.Context, userID int64) ([]users.User, error)
}

// MailerPort hands delivery off to the job queue.
type MailerPort interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Service fans notifications out to resolved recipients.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	users  UsersPort
	mailer MailerPort
}

// NewService builds Service. mailer may be nil; delivery is then skipped.
func NewService(logger *slog.Logger, repo RepositoryPort, usersPort UsersPort, mailer MailerPort) *Service {
	return &Service{logger: logger, repo: repo, users: usersPort, mailer: mailer}
}

// Send resolves recipients, persists the notification with one read-state row
// per recipient, and enqueues e-mail delivery. Resolving zero recipients is an
// error; nothing is persisted.
func (s *Service) Send(ctx context.Context, in Input) (Notification, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		return Notification{}, ErrValidation
	}
	recipients, err := s.resolve(ctx, in.Recipients)
	if err != nil {
		return Notification{}, err
	}
	if len(recipients) == 0 {
		return Notification{}, ErrNoRecipients
	}
	ids := make([]int64, len(recipients))
	for i, u := range recipients {
		ids[i] = u.ID
	}
	created, err := s.repo.Create(ctx, Notification{
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		ProductID: in.ProductID,
		RequestID: in.RequestID,
		SenderID:  in.SenderID,
	}, ids)
	if err != nil {
		return Notification{}, err
	}
	if s.mailer != nil {
		for _, u := range recipients {
			if err := s.mailer.EnqueueEmail(ctx, u.Email, in.Title, in.Message); err != nil {
				s.logger.Warn("enqueue notification email", slog.String("email", u.Email), slog.Any("error", err))
			}
		}
	}
	return created, nil
}

// ListForUser returns the viewer's notifications with read flags.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

// MarkRead flags one notification read for the viewer only.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID int64) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

// UnreadCount counts the viewer's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *Service) resolve(ctx context.Context, r Recipients) ([]users.User, error) {
	switch r.kind {
	case kindExplicit:
		if len(r.ids) == 0 {
			return nil, ErrNoRecipients
		}
		return s.users.ListByIDs(ctx, r.ids)
	case kindAllWithRole:
		return s.users.ListActiveByRole(ctx, r.role)
	case kindAllExcept:
		return s.users.ListActiveExcept(ctx, r.exceptID)
	}
	return nil, ErrNoRecipients
}
