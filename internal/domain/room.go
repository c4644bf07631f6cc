package domain

import "time"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomBooked      RoomStatus = "booked"
	RoomCleaning    RoomStatus = "cleaning"
	RoomMaintenance RoomStatus = "maintenance"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomBooked, RoomCleaning, RoomMaintenance:
		return true
	}
	return false
}

type Floor struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomType carries occupancy, pricing and refund policy for every room of the type.
type RoomType struct {
	ID            int64  `json:"id" gorm:"primaryKey"`
	Name          string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	BasePrice     int64  `json:"base_price" gorm:"not null"`
	Capacity      int    `json:"capacity" gorm:"not null"`
	BaseAdults    int    `json:"base_adults" gorm:"not null;default:2"`
	BaseChildren  int    `json:"base_children" gorm:"not null;default:0"`
	ExtraAdultFee int64  `json:"extra_adult_fee" gorm:"not null;default:0"`
	ExtraChildFee int64  `json:"extra_child_fee" gorm:"not null;default:0"`

	Refundable          bool `json:"refundable" gorm:"not null"`
	NonRefundable       bool `json:"non_refundable" gorm:"not null;default:false"`
	RefundPercent       *int `json:"refund_percent,omitempty"`
	RefundDeadlineHours *int `json:"refund_deadline_hours,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Room struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"size:50;not null;uniqueIndex"`
	RoomTypeID int64      `json:"room_type_id" gorm:"not null;index"`
	FloorID    int64      `json:"floor_id" gorm:"not null;index"`
	Status     RoomStatus `json:"status" gorm:"size:20;not null;default:available;index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	RoomType *RoomType `json:"room_type,omitempty" gorm:"foreignKey:RoomTypeID"`
	Floor    *Floor    `json:"floor,omitempty" gorm:"foreignKey:FloorID"`
}
