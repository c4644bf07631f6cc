package domain

import (
	"time"

	"gorm.io/gorm"
)

type IncidentStatus string

const (
	IncidentPending IncidentStatus = "pending"
	IncidentFixed   IncidentStatus = "fixed"
)

// BookingIncident records damaged or lost equipment. Soft-deleted rows keep the audit trail
// and are hidden from default queries.
type BookingIncident struct {
	ID                int64          `json:"id" gorm:"primaryKey"`
	BookingID         int64          `json:"booking_id" gorm:"not null;index"`
	RoomID            int64          `json:"room_id" gorm:"not null;index"`
	EquipmentID       int64          `json:"equipment_id" gorm:"not null"`
	Quantity          int            `json:"quantity" gorm:"not null"`
	Reason            string         `json:"reason" gorm:"type:text"`
	CompensationPrice int64          `json:"compensation_price" gorm:"not null"`
	Amount            int64          `json:"amount" gorm:"not null"`
	Status            IncidentStatus `json:"status" gorm:"size:20;not null;default:pending;index"`
	ReportedBy        *int64         `json:"reported_by,omitempty"`
	ResolvedBy        *int64         `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
	DeletedBy         *int64         `json:"deleted_by,omitempty"`
	DeletedReason     string         `json:"deleted_reason,omitempty" gorm:"type:text"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
