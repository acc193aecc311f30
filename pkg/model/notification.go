package model

import "time"

// Notification is addressed to a principal by access id. Rows are created by
// portal routing and the deadline sweep; the only mutation is the per-user
// bulk read flip.
type Notification struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Message   string `gorm:"type:text;not null"`
	IsRead    bool   `gorm:"default:false"`
	CreatedAt time.Time
}

func (Notification) TableName() string {
	return "notifications"
}
