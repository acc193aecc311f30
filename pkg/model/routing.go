package model

import "time"

type RoutingMethod string

const (
	RouteMethodEmail  RoutingMethod = "email"
	RouteMethodPortal RoutingMethod = "portal"
)

type RoutingStatus string

const (
	RouteStatusSent     RoutingStatus = "Sent"
	RouteStatusAssigned RoutingStatus = "Assigned"
	RouteStatusPending  RoutingStatus = "pending"
	RouteStatusAccepted RoutingStatus = "accepted"
)

// RoutingRecord captures one routing action for a complaint. Records are
// append-only: a new routing supersedes the old one, nothing is updated in
// place. A complaint's history is its records ordered newest first.
type RoutingRecord struct {
	ID          uint          `gorm:"primaryKey"`
	ComplaintID uint          `gorm:"not null;index"`
	Method      RoutingMethod `gorm:"type:varchar(10);not null"`
	Recipient   string        `gorm:"not null"`
	Message     string        `gorm:"type:text"`
	Status      RoutingStatus `gorm:"type:varchar(20);not null"`
	CreatedBy   uint          `gorm:"not null"`
	FromUnitID  uint          `gorm:"column:from_user_id;index"`
	ToUnitID    uint          `gorm:"column:to_user_id;index"`
	CreatedAt   time.Time     `gorm:"index"`
}

func (RoutingRecord) TableName() string {
	return "complaint_routing"
}
