package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/foshrdd/grievance/pkg/model"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) CreateBatch(ctx context.Context, files []*model.ComplaintFile) error {
	if len(files) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(files, 100).Error
}

func (r *AttachmentRepository) ListByCategory(ctx context.Context, complaintID uint, category model.FileCategory) ([]model.ComplaintFile, error) {
	var files []model.ComplaintFile
	err := r.db.WithContext(ctx).
		Where("complaint_id = ? AND file_category = ?", complaintID, category).
		Order("created_at").
		Find(&files).Error
	return files, err
}
