package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/foshrdd/grievance/pkg/model"
)

type ComplaintRepository struct {
	db *gorm.DB
}

func NewComplaintRepository(db *gorm.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

func (r *ComplaintRepository) Create(ctx context.Context, complaint *model.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *ComplaintRepository) GetByTicket(ctx context.Context, ticketNumber string) (*model.Complaint, error) {
	var complaint model.Complaint
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Employee.Office").
		Preload("Employee.Office.Company").
		First(&complaint, "ticket_number = ?", ticketNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &complaint, nil
}

// CountWithTicketPrefix counts tickets sharing a day prefix. Used for
// sequence allocation; the count-then-insert pair is not atomic, so two
// concurrent creations on the same day can collide (known gap inherited
// from the portal's original allocator).
func (r *ComplaintRepository) CountWithTicketPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Complaint{}).
		Where("ticket_number LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

// Update applies field updates to one complaint row unconditionally; there
// is no optimistic concurrency check.
func (r *ComplaintRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&model.Complaint{}).Where("id = ?", id).Updates(updates).Error
}

// ListActive returns every complaint visible to some listing, with the
// employee/office/company chain preloaded so display fields are always
// computed fresh. Unapproved and Rejected never leave the store.
func (r *ComplaintRepository) ListActive(ctx context.Context) ([]model.Complaint, error) {
	var complaints []model.Complaint
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Employee.Office").
		Preload("Employee.Office.Company").
		Where("status NOT IN ?", []model.ComplaintStatus{model.StatusUnapproved, model.StatusRejected}).
		Order("date_entry DESC").
		Find(&complaints).Error
	return complaints, err
}

func (r *ComplaintRepository) ListByIDs(ctx context.Context, ids []uint) ([]model.Complaint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var complaints []model.Complaint
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Employee.Office").
		Preload("Employee.Office.Company").
		Where("id IN ?", ids).
		Where("status NOT IN ?", []model.ComplaintStatus{model.StatusUnapproved, model.StatusRejected}).
		Find(&complaints).Error
	return complaints, err
}

// DueForReminder selects complaints whose live round's CAPA deadline falls
// at or before the horizon. The status decides which deadline column is
// checked, mirroring the sweep's round resolution.
func (r *ComplaintRepository) DueForReminder(ctx context.Context, by time.Time) ([]model.Complaint, error) {
	var complaints []model.Complaint
	err := r.db.WithContext(ctx).
		Where(
			"(status = ? AND capa_deadline IS NOT NULL AND capa_deadline <= ?) OR "+
				"(status = ? AND capa_deadline1 IS NOT NULL AND capa_deadline1 <= ?) OR "+
				"(status = ? AND capa_deadline2 IS NOT NULL AND capa_deadline2 <= ?)",
			model.StatusInProcess, by,
			model.StatusBounced, by,
			model.StatusBounced1, by,
		).
		Find(&complaints).Error
	return complaints, err
}

type StatusCount struct {
	Status model.ComplaintStatus
	Count  int64
}

// CountByStatus aggregates complaints over an arbitrary status set; feeds
// the dashboard breakdown.
func (r *ComplaintRepository) CountByStatus(ctx context.Context, statuses []model.ComplaintStatus, since *time.Time) ([]StatusCount, error) {
	set := make([]string, len(statuses))
	for i, s := range statuses {
		set[i] = string(s)
	}

	query := r.db.WithContext(ctx).Model(&model.Complaint{}).
		Select("status, COUNT(*) as count").
		Where("status = ANY(?)", pq.Array(set)).
		Group("status")
	if since != nil {
		query = query.Where("date_entry >= ?", *since)
	}

	var counts []StatusCount
	err := query.Scan(&counts).Error
	return counts, err
}
