package booking

import (
	"encoding/json"
	"strings"
	"time"

	"hotelengine/internal/domain"
)

// Date is a calendar date sent as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

func NewDate(y int, m time.Month, day int) Date {
	return Date{time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}

// ItemRequest either names a room or asks for Quantity rooms of RoomTypeID.
type ItemRequest struct {
	RoomID     *int64 `json:"room_id"`
	RoomTypeID int64  `json:"room_type_id"`
	Quantity   int    `json:"quantity"`
	CheckIn    Date   `json:"check_in"`
	CheckOut   Date   `json:"check_out"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	Infants    int    `json:"infants"`
}

type CreateBookingRequest struct {
	CustomerName  string               `json:"customer_name" binding:"required"`
	CustomerEmail string               `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone string               `json:"customer_phone"`
	UserID        *int64               `json:"user_id"`
	Source        domain.BookingSource `json:"source"`
	PaymentMethod string               `json:"payment_method"`
	DiscountCode  string               `json:"discount_code"`
	Items         []ItemRequest        `json:"items"`

	// RoomsConfig is the retired single-field format. Requests carrying it are rejected.
	RoomsConfig json.RawMessage `json:"rooms_config,omitempty"`
}

// AdminUpdateRequest: nil fields are left untouched.
type AdminUpdateRequest struct {
	StayStatusID  *domain.StayStatus    `json:"stay_status_id"`
	PaymentStatus *domain.PaymentStatus `json:"payment_status"`
	PaymentMethod *string               `json:"payment_method"`
	CustomerName  *string               `json:"customer_name"`
	CustomerEmail *string               `json:"customer_email"`
	CustomerPhone *string               `json:"customer_phone"`
	Reason        string                `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type AddServiceRequest struct {
	ServiceID int64 `json:"service_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type ApplyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// Ledger breaks a booking total into its parts.
type Ledger struct {
	Items      int64 `json:"items"`
	Services   int64 `json:"services"`
	Incidents  int64 `json:"incidents"`
	Discount   int64 `json:"discount"`
	Expected   int64 `json:"expected"`
	Recorded   int64 `json:"recorded"`
	Consistent bool  `json:"consistent"`
}
