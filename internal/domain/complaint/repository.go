package complaint

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ListFilter struct {
	ReporterID string
	AssignedTo string
	Status     *Status
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, c *Complaint) error
	GetByID(ctx context.Context, id string) (*Complaint, error)
	// UpdateLifecycle writes only the named lifecycle columns of c, plus
	// updated_at, in one statement. Untouched columns keep whatever a
	// concurrent writer stored.
	UpdateLifecycle(ctx context.Context, c *Complaint, columns []string) error
	List(ctx context.Context, f ListFilter) ([]Complaint, int64, error)
}

// Lifecycle columns accepted by UpdateLifecycle.
const (
	ColStatus           = "status"
	ColAssignedTo       = "assigned_to"
	ColResolutionImages = "resolution_images"
	ColDateResolved     = "date_resolved"
	ColUpdatedAt        = "updated_at"
)

var lifecycleColumns = map[string]bool{
	ColStatus:           true,
	ColAssignedTo:       true,
	ColResolutionImages: true,
	ColDateResolved:     true,
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, c *Complaint) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Complaint, error) {
	var c Complaint
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) UpdateLifecycle(ctx context.Context, c *Complaint, columns []string) error {
	selected := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		if !lifecycleColumns[col] {
			return fmt.Errorf("update lifecycle: column %q is not writable", col)
		}
		selected = append(selected, col)
	}
	selected = append(selected, ColUpdatedAt)

	res := r.db.WithContext(ctx).
		Model(&Complaint{ID: c.ID}).
		Select(selected).
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, f ListFilter) ([]Complaint, int64, error) {
	q := r.db.WithContext(ctx).Model(&Complaint{})
	if f.ReporterID != "" {
		q = q.Where("reporter_id = ?", f.ReporterID)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	items := []Complaint{}
	err := q.Order("date_submitted DESC").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
