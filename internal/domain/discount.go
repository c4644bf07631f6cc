package domain

import "time"

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type DiscountStatus string

const (
	DiscountActive   DiscountStatus = "active"
	DiscountInactive DiscountStatus = "inactive"
	DiscountExpired  DiscountStatus = "expired"
)

// DiscountCode limits: zero MaxUses / MaxUsesPerUser / MaxDiscountAmount mean unlimited.
// StartDate and EndDate are inclusive venue-local dates.
type DiscountCode struct {
	ID                int64          `json:"id" gorm:"primaryKey"`
	Code              string         `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Type              DiscountType   `json:"type" gorm:"size:20;not null"`
	Value             int64          `json:"value" gorm:"not null"`
	MinTotal          int64          `json:"min_total" gorm:"not null;default:0"`
	MaxUses           int            `json:"max_uses" gorm:"not null;default:0"`
	MaxUsesPerUser    int            `json:"max_uses_per_user" gorm:"not null;default:0"`
	MaxDiscountAmount int64          `json:"max_discount_amount" gorm:"not null;default:0"`
	UsedCount         int            `json:"used_count" gorm:"not null;default:0"`
	StartDate         *time.Time     `json:"start_date,omitempty"`
	EndDate           *time.Time     `json:"end_date,omitempty"`
	Status            DiscountStatus `json:"status" gorm:"size:20;not null;default:active;index"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type DiscountCodeUsage struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	CodeID     int64     `json:"code_id" gorm:"not null;uniqueIndex:idx_discount_usage_code_user"`
	UserID     int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_discount_usage_code_user"`
	UsageCount int       `json:"usage_count" gorm:"not null;default:0"`
	BookingID  *int64    `json:"booking_id,omitempty"`
	UsedAt     time.Time `json:"used_at"`
}
