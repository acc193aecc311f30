package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/foshrdd/grievance/pkg/model"
)

type RoutingRepository struct {
	db *gorm.DB
}

func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

// AppendWithStatus appends one routing record and applies the accompanying
// complaint updates in a single transaction, so a persistence error leaves
// neither half behind.
func (r *RoutingRepository) AppendWithStatus(ctx context.Context, record *model.RoutingRecord, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&model.Complaint{}).Where("id = ?", record.ComplaintID).Updates(updates).Error
	})
}

// AssignWithNotification is the portal-routing write set: notification for
// the target, routing record, status/assignee update. All three commit or
// none do.
func (r *RoutingRepository) AssignWithNotification(ctx context.Context, record *model.RoutingRecord, notification *model.Notification, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(notification).Error; err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&model.Complaint{}).Where("id = ?", record.ComplaintID).Updates(updates).Error
	})
}

// HistoryForComplaint returns the complaint's routing records newest first.
func (r *RoutingRepository) HistoryForComplaint(ctx context.Context, complaintID uint) ([]model.RoutingRecord, error) {
	var records []model.RoutingRecord
	err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// PendingComplaintIDs lists complaints with an open routing addressed to the
// unit from somewhere else, so a unit never sees its own outgoing routes a
// second time.
func (r *RoutingRepository) PendingComplaintIDs(ctx context.Context, unitID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.RoutingRecord{}).
		Distinct("complaint_id").
		Where("to_user_id = ? AND from_user_id != ?", unitID, unitID).
		Where("status IN ?", []model.RoutingStatus{model.RouteStatusPending, model.RouteStatusAssigned}).
		Pluck("complaint_id", &ids).Error
	return ids, err
}
