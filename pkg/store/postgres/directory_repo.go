package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/foshrdd/grievance/pkg/model"
)

// DirectoryRepository serves employee and login lookups: the data the
// lifecycle engine joins at read time and the sweep resolves assignees from.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetEmployee(ctx context.Context, id uint) (*model.Employee, error) {
	var employee model.Employee
	err := r.db.WithContext(ctx).
		Preload("Office").
		Preload("Office.Company").
		First(&employee, "employee_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *DirectoryRepository) GetLoginByEmail(ctx context.Context, email string) (*model.Login, error) {
	var login model.Login
	err := r.db.WithContext(ctx).First(&login, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &login, nil
}

func (r *DirectoryRepository) GetLoginByAccessID(ctx context.Context, accessID uint) (*model.Login, error) {
	var login model.Login
	err := r.db.WithContext(ctx).First(&login, "access_id = ?", accessID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &login, nil
}

type IOUser struct {
	ID     uint   `json:"id"`
	Email  string `json:"email"`
	Office string `json:"office"`
}

// ListIOUsers returns the routing directory: every login with the io role,
// with its office name joined.
func (r *DirectoryRepository) ListIOUsers(ctx context.Context) ([]IOUser, error) {
	var users []IOUser
	err := r.db.WithContext(ctx).
		Table("logins l").
		Select("l.access_id as id, l.email, o.office_name as office").
		Joins("LEFT JOIN offices o ON l.office_id = o.office_id").
		Where("l.role = ?", "io").
		Order("l.email").
		Scan(&users).Error
	return users, err
}
