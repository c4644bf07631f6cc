package availability

import (
	"context"
	"errors"
	"sort"

	"hotelengine/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Query struct {
	Interval
	Guests
	RoomTypeID int64
	FloorID    int64
	// Exclude drops rooms already taken by earlier items of the same request.
	Exclude []int64
}

// Finder answers availability questions. Read paths use the pool; allocation paths take the
// caller's transaction so the check and the insert commit together.
type Finder struct {
	db     *gorm.DB
	search func(tx *gorm.DB, q Query, only []int64) ([]domain.Room, error)
}

func NewFinder(db *gorm.DB) *Finder {
	return &Finder{db: db, search: candidates}
}

// assignAttempts bounds the searches AutoAssign runs when rooms it saw free are taken
// before it can lock them.
const assignAttempts = 3

// FindAvailableRooms lists bookable rooms ordered by name. It takes no locks.
func (f *Finder) FindAvailableRooms(ctx context.Context, q Query) ([]domain.Room, error) {
	if err := q.Guests.Validate(); err != nil {
		return nil, err
	}
	return candidates(f.db.WithContext(ctx), q, nil)
}

// AutoAssign picks n rooms for q inside tx. Candidates are locked in id order and the
// availability predicate is re-run under the locks. Rooms lost to a concurrent booking in
// between are replaced by searching again without them. Either n rooms come back or none.
func (f *Finder) AutoAssign(ctx context.Context, tx *gorm.DB, q Query, n int) ([]domain.Room, error) {
	if n < 1 {
		return nil, nil
	}
	tx = tx.WithContext(ctx)

	var picked []domain.Room
	seen := append([]int64(nil), q.Exclude...)
	for attempt := 0; attempt < assignAttempts && len(picked) < n; attempt++ {
		sq := q
		sq.Exclude = seen
		found, err := f.search(tx, sq, nil)
		if err != nil {
			return nil, err
		}
		if len(picked)+len(found) < n {
			return nil, insufficient(q, n, len(picked)+len(found))
		}

		ids := make([]int64, len(found))
		for i, r := range found {
			ids[i] = r.ID
		}
		seen = append(seen, ids...)
		if _, err := LockRooms(tx, ids); err != nil {
			return nil, err
		}

		confirmed, err := f.search(tx, q, ids)
		if err != nil {
			return nil, err
		}
		picked = append(picked, confirmed...)
	}
	if len(picked) < n {
		return nil, insufficient(q, n, len(picked))
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Name < picked[j].Name })
	return picked[:n], nil
}

// Verify locks an explicitly chosen room and checks it against q inside tx.
func (f *Finder) Verify(ctx context.Context, tx *gorm.DB, roomID int64, q Query) (*domain.Room, error) {
	tx = tx.WithContext(ctx)

	locked, err := LockRooms(tx, []int64{roomID})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, ErrRoomNotFound
	}

	var rt domain.RoomType
	if err := tx.First(&rt, locked[0].RoomTypeID).Error; err != nil {
		return nil, err
	}
	if err := q.Guests.FitsRoomType(rt); err != nil {
		return nil, err
	}

	q.RoomTypeID, q.FloorID = 0, 0
	ok, err := candidates(tx, q, []int64{roomID})
	if err != nil {
		return nil, err
	}
	if len(ok) == 0 {
		return nil, ErrRoomUnavailable.WithDetails(map[string]any{
			"room_id":   roomID,
			"room_name": locked[0].Name,
			"check_in":  q.Start.Format("2006-01-02"),
			"check_out": q.End.Format("2006-01-02"),
		})
	}
	return &ok[0], nil
}

// LockRooms takes row locks (SELECT ... FOR UPDATE) on rooms in ascending id order so that
// concurrent allocators always lock in the same sequence.
func LockRooms(tx *gorm.DB, ids []int64) ([]domain.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var rooms []domain.Room
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// BusyItems selects room ids with an active item of an active booking overlapping iv.
func BusyItems(tx *gorm.DB, iv Interval) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&domain.BookingItem{}).
		Select("booking_items.room_id").
		Joins("JOIN bookings ON bookings.id = booking_items.booking_id").
		Where("booking_items.status = ?", domain.ItemActive).
		Where("bookings.stay_status_id IN ?", domain.ActiveStayStatuses).
		Where("NOT (booking_items.check_out <= ? OR booking_items.check_in >= ?)", iv.Start, iv.End)
}

func candidates(tx *gorm.DB, q Query, only []int64) ([]domain.Room, error) {
	broken := tx.Session(&gorm.Session{NewDB: true}).
		Model(&domain.RoomDevice{}).
		Select("1").
		Where("room_devices.room_id = rooms.id AND room_devices.status = ?", domain.DeviceBroken)

	stmt := tx.Session(&gorm.Session{NewDB: true}).
		Model(&domain.Room{}).
		Preload("RoomType").
		Joins("JOIN room_types ON room_types.id = rooms.room_type_id").
		Where("rooms.status = ?", domain.RoomAvailable).
		Where("room_types.capacity >= ?", q.Total()).
		Where("(room_types.base_adults = 0 OR room_types.base_adults + 1 >= ?)", q.Adults).
		Where("NOT EXISTS (?)", broken).
		Where("rooms.id NOT IN (?)", BusyItems(tx, q.Interval))

	if q.RoomTypeID != 0 {
		stmt = stmt.Where("rooms.room_type_id = ?", q.RoomTypeID)
	}
	if q.FloorID != 0 {
		stmt = stmt.Where("rooms.floor_id = ?", q.FloorID)
	}
	if len(q.Exclude) > 0 {
		stmt = stmt.Where("rooms.id NOT IN ?", q.Exclude)
	}
	if only != nil {
		stmt = stmt.Where("rooms.id IN ?", only)
	}

	var rooms []domain.Room
	if err := stmt.Order("rooms.name, rooms.id").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func insufficient(q Query, want, got int) error {
	return ErrInsufficientInventory.WithDetails(map[string]any{
		"room_type_id": q.RoomTypeID,
		"requested":    want,
		"available":    got,
	})
}

// IsAllocationConflict reports whether err means the rooms were taken.
func IsAllocationConflict(err error) bool {
	return errors.Is(err, ErrRoomUnavailable) || errors.Is(err, ErrInsufficientInventory) || errors.Is(err, ErrDuplicateRoom)
}
