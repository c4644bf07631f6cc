package domain

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPartial, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

type BookingSource string

const (
	SourceOnline  BookingSource = "online"
	SourceOffline BookingSource = "offline"
)

// Booking.TotalPrice always equals active item prices + service lines + live incident
// amounts - DiscountAmount. Every mutating operation updates it in the same transaction.
type Booking struct {
	ID            int64         `json:"id" gorm:"primaryKey"`
	ReferenceCode string        `json:"reference_code" gorm:"size:36;not null;uniqueIndex"`
	CustomerName  string        `json:"customer_name" gorm:"size:255;not null"`
	CustomerEmail string        `json:"customer_email" gorm:"size:255"`
	CustomerPhone string        `json:"customer_phone" gorm:"size:50"`
	UserID        *int64        `json:"user_id,omitempty" gorm:"index"`
	Source        BookingSource `json:"source" gorm:"size:20;not null;default:online"`

	StayStatusID  StayStatus    `json:"stay_status_id" gorm:"not null;index"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"size:20;not null;default:unpaid"`
	PaymentMethod string        `json:"payment_method,omitempty" gorm:"size:50"`

	TotalPrice     int64   `json:"total_price" gorm:"not null;default:0"`
	DiscountCode   *string `json:"discount_code,omitempty" gorm:"size:50"`
	DiscountAmount int64   `json:"discount_amount" gorm:"not null;default:0"`
	RefundAmount   int64   `json:"refund_amount" gorm:"not null;default:0"`

	CheckedInBy  *int64     `json:"checked_in_by,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutBy *int64     `json:"checked_out_by,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CanceledBy   *int64     `json:"canceled_by,omitempty"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items    []BookingItem        `json:"items,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	Services []BookingServiceLine `json:"services,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

// OwnedBy reports whether the booking belongs to the given user account.
func (b Booking) OwnedBy(userID int64) bool {
	return b.UserID != nil && userID != 0 && *b.UserID == userID
}

type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemCancelled ItemStatus = "cancelled"
)

// BookingItem reserves one room over the half-open date range [CheckIn, CheckOut).
// Dates are stored as UTC midnights.
type BookingItem struct {
	ID           int64          `json:"id" gorm:"primaryKey"`
	BookingID    int64          `json:"booking_id" gorm:"not null;index"`
	RoomID       int64          `json:"room_id" gorm:"not null;index:idx_item_room_range"`
	RoomTypeID   int64          `json:"room_type_id" gorm:"not null"`
	CheckIn      time.Time      `json:"check_in" gorm:"not null;index:idx_item_room_range"`
	CheckOut     time.Time      `json:"check_out" gorm:"not null;index:idx_item_room_range"`
	Adults       int            `json:"adults" gorm:"not null;default:1"`
	Children     int            `json:"children" gorm:"not null;default:0"`
	Infants      int            `json:"infants" gorm:"not null;default:0"`
	Nights       int            `json:"nights" gorm:"not null"`
	Price        int64          `json:"price" gorm:"not null"`
	Pricing      datatypes.JSON `json:"pricing,omitempty"`
	Status       ItemStatus     `json:"status" gorm:"size:20;not null;default:active"`
	RefundAmount int64          `json:"refund_amount" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Room     *Room     `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	RoomType *RoomType `json:"room_type,omitempty" gorm:"foreignKey:RoomTypeID"`
}

// PricingSnapshot freezes the room-type prices used when the item was created.
type PricingSnapshot struct {
	BasePrice     int64 `json:"base_price"`
	ExtraAdultFee int64 `json:"extra_adult_fee"`
	ExtraChildFee int64 `json:"extra_child_fee"`
	ExtraAdults   int   `json:"extra_adults"`
	ExtraChildren int   `json:"extra_children"`
	NightlyRate   int64 `json:"nightly_rate"`
	Nights        int   `json:"nights"`
}

// ExtraService is a sellable add-on (breakfast, airport pickup, ...).
type ExtraService struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Price     int64     `json:"price" gorm:"not null"`
	Active    bool      `json:"active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (ExtraService) TableName() string { return "services" }

type BookingServiceLine struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	BookingID int64     `json:"booking_id" gorm:"not null;index"`
	ServiceID int64     `json:"service_id" gorm:"not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	UnitPrice int64     `json:"unit_price" gorm:"not null"`
	Amount    int64     `json:"amount" gorm:"not null"`
	AddedBy   *int64    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (BookingServiceLine) TableName() string { return "booking_services" }
