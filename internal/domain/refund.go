package domain

import (
	"time"

	"gorm.io/datatypes"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundCompleted RefundStatus = "completed"
	RefundRejected  RefundStatus = "rejected"
)

type BankDetails struct {
	BankName      string `json:"bank_name" validate:"required"`
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,min=4,max=34"`
}

// RefundRequest targets exactly one of a booking or a single booking item.
type RefundRequest struct {
	ID            int64          `json:"id" gorm:"primaryKey"`
	Reference     string         `json:"reference" gorm:"size:36;not null;uniqueIndex"`
	BookingID     *int64         `json:"booking_id,omitempty" gorm:"index"`
	BookingItemID *int64         `json:"booking_item_id,omitempty" gorm:"index"`
	Amount        int64          `json:"amount" gorm:"not null"`
	BankDetails   datatypes.JSON `json:"bank_details"`
	Status        RefundStatus   `json:"status" gorm:"size:20;not null;default:pending;index"`
	RequestedBy   *int64         `json:"requested_by,omitempty"`
	ProcessedBy   *int64         `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	RejectReason  string         `json:"reject_reason,omitempty" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
