// Package testutil opens throwaway SQLite databases and seeds hotel fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"hotelengine/internal/database"
	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// OpenDB returns a migrated in-memory database private to the test. A single connection
// serializes transactions the way row locks do on a server database.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", name, uuid.NewString()[:8])
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Venue is the test venue: Asia/Ho_Chi_Minh with a 14:00 check-in.
func Venue(t testing.TB) clock.Venue {
	t.Helper()
	v, err := clock.NewVenue(clock.DefaultTimezone, clock.DefaultCheckInHour)
	require.NoError(t, err)
	return v
}

// Date builds a UTC-midnight calendar date.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// At returns the venue-local instant for the given date and hour.
func At(v clock.Venue, y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, v.Location)
}

type Hotel struct {
	DB    *gorm.DB
	Floor domain.Floor
}

func NewHotel(t testing.TB, db *gorm.DB) *Hotel {
	t.Helper()
	floor := domain.Floor{Name: "F1", Level: 1}
	require.NoError(t, db.Create(&floor).Error)
	return &Hotel{DB: db, Floor: floor}
}

// RoomType inserts rt; zero BasePrice/Capacity default to 1_000_000 and 2.
func (h *Hotel) RoomType(t testing.TB, rt domain.RoomType) domain.RoomType {
	t.Helper()
	if rt.Name == "" {
		rt.Name = "type-" + uuid.NewString()[:8]
	}
	if rt.BasePrice == 0 {
		rt.BasePrice = 1_000_000
	}
	if rt.Capacity == 0 {
		rt.Capacity = 2
	}
	if rt.BaseAdults == 0 {
		rt.BaseAdults = 2
	}
	if !rt.NonRefundable {
		rt.Refundable = true
	}
	require.NoError(t, h.DB.Create(&rt).Error)
	return rt
}

func (h *Hotel) Room(t testing.TB, name string, rt domain.RoomType) domain.Room {
	t.Helper()
	room := domain.Room{Name: name, RoomTypeID: rt.ID, FloorID: h.Floor.ID, Status: domain.RoomAvailable}
	require.NoError(t, h.DB.Create(&room).Error)
	return room
}

func (h *Hotel) SetRoomStatus(t testing.TB, roomID int64, status domain.RoomStatus) {
	t.Helper()
	require.NoError(t, h.DB.Model(&domain.Room{}).Where("id = ?", roomID).Update("status", status).Error)
}

func (h *Hotel) RoomStatus(t testing.TB, roomID int64) domain.RoomStatus {
	t.Helper()
	var room domain.Room
	require.NoError(t, h.DB.First(&room, roomID).Error)
	return room.Status
}

func (h *Hotel) Equipment(t testing.TB, name string, compensation int64) domain.Equipment {
	t.Helper()
	eq := domain.Equipment{Name: name, CompensationPrice: compensation}
	require.NoError(t, h.DB.Create(&eq).Error)
	return eq
}

func (h *Hotel) Standard(t testing.TB, rt domain.RoomType, eq domain.Equipment, qty, maxQty int) domain.RoomTypeEquipment {
	t.Helper()
	std := domain.RoomTypeEquipment{RoomTypeID: rt.ID, EquipmentID: eq.ID, Quantity: qty, MaxQuantity: maxQty}
	require.NoError(t, h.DB.Create(&std).Error)
	return std
}

func (h *Hotel) Device(t testing.TB, room domain.Room, eq domain.Equipment, qty int, status domain.DeviceStatus) domain.RoomDevice {
	t.Helper()
	dev := domain.RoomDevice{RoomID: room.ID, EquipmentID: eq.ID, Quantity: qty, Status: status}
	require.NoError(t, h.DB.Create(&dev).Error)
	return dev
}

func (h *Hotel) Service(t testing.TB, name string, price int64) domain.ExtraService {
	t.Helper()
	svc := domain.ExtraService{Name: name, Price: price, Active: true}
	require.NoError(t, h.DB.Create(&svc).Error)
	return svc
}

// Stay is a compact description of an item for Booking.
type Stay struct {
	Room     domain.Room
	CheckIn  time.Time
	CheckOut time.Time
	Price    int64
}

// Booking inserts a booking directly, bypassing the lifecycle service. Total is the sum
// of the item prices.
func (h *Hotel) Booking(t testing.TB, status domain.StayStatus, userID *int64, stays ...Stay) domain.Booking {
	t.Helper()
	b := domain.Booking{
		ReferenceCode: uuid.NewString(),
		CustomerName:  "Test Guest",
		CustomerEmail: "guest@example.com",
		UserID:        userID,
		Source:        domain.SourceOnline,
		StayStatusID:  status,
		PaymentStatus: domain.PaymentUnpaid,
	}
	require.NoError(t, h.DB.Create(&b).Error)

	for _, s := range stays {
		nights := int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
		item := domain.BookingItem{
			BookingID:  b.ID,
			RoomID:     s.Room.ID,
			RoomTypeID: s.Room.RoomTypeID,
			CheckIn:    s.CheckIn,
			CheckOut:   s.CheckOut,
			Adults:     1,
			Nights:     nights,
			Price:      s.Price,
			Status:     domain.ItemActive,
		}
		require.NoError(t, h.DB.Create(&item).Error)
		b.TotalPrice += s.Price
		b.Items = append(b.Items, item)
	}
	require.NoError(t, h.DB.Model(&domain.Booking{}).Where("id = ?", b.ID).Update("total_price", b.TotalPrice).Error)
	return b
}

func (h *Hotel) Reload(t testing.TB, bookingID int64) domain.Booking {
	t.Helper()
	var b domain.Booking
	require.NoError(t, h.DB.Preload("Items").Preload("Services").First(&b, bookingID).Error)
	return b
}

func Int64(v int64) *int64 { return &v }
func Int(v int) *int       { return &v }
