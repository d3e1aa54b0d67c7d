package notification

import (
	"context"
	"errors"
	"time"

	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/apperr"
	"hostelcare/internal/realtime"
)

type Service struct {
	repo      Repository
	publisher *realtime.Publisher
	now       func() time.Time
}

func NewService(repo Repository, publisher *realtime.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ListResult struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
	Total         int64          `json:"total"`
}

func (s *Service) List(ctx context.Context, actor user.Actor, limit, offset int) (*ListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.ListByRecipient(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, apperr.Persistence("list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Persistence("count unread", err)
	}

	return &ListResult{Notifications: items, UnreadCount: unread, Total: total}, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor user.Actor) (int64, error) {
	n, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Persistence("count unread", err)
	}
	return n, nil
}

// MarkNotificationRead is owner-only and idempotent.
func (s *Service) MarkNotificationRead(ctx context.Context, actor user.Actor, id string) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil, apperr.NotFound("notification", id)
		}
		return nil, apperr.Persistence("load notification", err)
	}
	if n.RecipientID != actor.ID {
		return nil, apperr.Forbidden(string(actor.Role), "mark notification read", "not the recipient")
	}
	if n.IsRead {
		return n, nil
	}

	at := s.now()
	changed, err := s.repo.MarkRead(ctx, id, at)
	if err != nil {
		return nil, apperr.Persistence("mark notification read", err)
	}
	if changed {
		n.IsRead = true
		if n.ClickedAt == nil {
			n.ClickedAt = &at
		}
		s.publisher.Snapshot(ctx, realtime.TopicNotifications, n.ID, n.RecipientID, n)
	}
	return n, nil
}

// MarkAllRead returns how many notifications changed; a second call
// returns 0.
func (s *Service) MarkAllRead(ctx context.Context, actor user.Actor, recipientID string) (int64, error) {
	if recipientID != actor.ID {
		return 0, apperr.Forbidden(string(actor.Role), "mark all notifications read", "not the recipient")
	}

	unread, err := s.repo.ListUnread(ctx, recipientID)
	if err != nil {
		return 0, apperr.Persistence("list unread", err)
	}
	if len(unread) == 0 {
		return 0, nil
	}

	ids := make([]string, len(unread))
	for i := range unread {
		ids[i] = unread[i].ID
	}
	changed, err := s.repo.MarkAllRead(ctx, recipientID, ids)
	if err != nil {
		return 0, apperr.Persistence("mark all read", err)
	}

	for i := range unread {
		unread[i].IsRead = true
		s.publisher.Snapshot(ctx, realtime.TopicNotifications, unread[i].ID, recipientID, &unread[i])
	}
	return changed, nil
}
