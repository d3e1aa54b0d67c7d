package conversation

import (
	"context"
	"time"

	"hostelcare/internal/pkg/id"

	"gorm.io/gorm"
)

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, complaintID string) ([]Entry, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Append is a single INSERT; concurrent writers never overwrite each other.
func (r *gormRepository) Append(ctx context.Context, e *Entry) error {
	if e.Seq == 0 {
		e.Seq = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *gormRepository) List(ctx context.Context, complaintID string) ([]Entry, error) {
	entries := []Entry{}
	err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("seq ASC").
		Find(&entries).Error
	return entries, err
}
