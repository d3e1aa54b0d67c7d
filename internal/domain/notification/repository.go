package notification

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]Notification, int64, error)
	ListUnread(ctx context.Context, recipientID string) ([]Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	// MarkRead flips is_read and stamps clicked_at once; false means it was already read.
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkAllRead flips is_read on the given ids owned by recipientID. Rows
	// outside ids stay unread even if they arrived after the caller listed.
	MarkAllRead(ctx context.Context, recipientID string, ids []string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, n *Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *gormRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&Notification{}).Where("recipient_id = ?", recipientID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []Notification{}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, total, err
}

func (r *gormRepository) ListUnread(ctx context.Context, recipientID string) ([]Notification, error) {
	items := []Notification{}
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *gormRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{
			"is_read":    true,
			"clicked_at": gorm.Expr("COALESCE(clicked_at, ?)", at),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, recipientID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ? AND id IN ?", recipientID, false, ids).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
