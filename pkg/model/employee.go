package model

import "time"

type Company struct {
	ID   uint   `gorm:"primaryKey;column:company_id"`
	Name string `gorm:"not null"`
}

func (Company) TableName() string {
	return "companies"
}

type Office struct {
	ID        uint   `gorm:"primaryKey;column:office_id"`
	Name      string `gorm:"column:office_name;not null"`
	CompanyID uint   `gorm:"not null;index"`
	Company   *Company
}

func (Office) TableName() string {
	return "offices"
}

type Employee struct {
	ID          uint   `gorm:"primaryKey;column:employee_id"`
	Name        string `gorm:"column:employee_name;not null"`
	Gender      string `gorm:"type:varchar(10)"`
	Designation string
	OfficeID    uint    `gorm:"not null;index"`
	Office      *Office `gorm:"foreignKey:OfficeID"`
	// Site holds the plant/site label some visibility rules key on.
	Site string `gorm:"column:temp_data"`
}

func (Employee) TableName() string {
	return "employees"
}

// Login is an authenticated principal: a role, a unique access id and an
// optional office binding used to resolve the visibility rule.
type Login struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password;not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	AccessID     uint   `gorm:"uniqueIndex;not null"`
	OfficeID     *uint
	CreatedAt    time.Time
}

func (Login) TableName() string {
	return "logins"
}
