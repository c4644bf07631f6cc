package domain

import "time"

type Equipment struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	CompensationPrice int64     `json:"compensation_price" gorm:"not null;default:0"`
	CreatedAt         time.Time `json:"created_at"`
}

func (Equipment) TableName() string { return "equipment" }

// RoomTypeEquipment is the equipment standard of a room type: which equipment a room of
// the type may hold and in what quantity.
type RoomTypeEquipment struct {
	ID          int64 `json:"id" gorm:"primaryKey"`
	RoomTypeID  int64 `json:"room_type_id" gorm:"not null;uniqueIndex:idx_room_type_equipment"`
	EquipmentID int64 `json:"equipment_id" gorm:"not null;uniqueIndex:idx_room_type_equipment"`
	Quantity    int   `json:"quantity" gorm:"not null"`
	MinQuantity int   `json:"min_quantity" gorm:"not null;default:0"`
	MaxQuantity int   `json:"max_quantity" gorm:"not null;default:0"`

	Equipment *Equipment `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
}

// UpperBound is the most devices of this equipment a room may hold.
func (s RoomTypeEquipment) UpperBound() int {
	if s.MaxQuantity > 0 {
		return s.MaxQuantity
	}
	return s.Quantity
}

type DeviceStatus string

const (
	DeviceWorking DeviceStatus = "working"
	DeviceBroken  DeviceStatus = "broken"
)

type RoomDevice struct {
	ID          int64        `json:"id" gorm:"primaryKey"`
	RoomID      int64        `json:"room_id" gorm:"not null;uniqueIndex:idx_room_device"`
	EquipmentID int64        `json:"equipment_id" gorm:"not null;uniqueIndex:idx_room_device"`
	Quantity    int          `json:"quantity" gorm:"not null;default:0"`
	Status      DeviceStatus `json:"status" gorm:"size:20;not null;default:working"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
