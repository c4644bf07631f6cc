package booking

import (
	"context"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/modules/availability"
	"hotelengine/internal/modules/discount"
	"hotelengine/internal/modules/refund"
	"hotelengine/internal/modules/roomstate"

	"gorm.io/gorm"
)

// RoomAllocator finds and locks rooms inside the booking transaction.
type RoomAllocator interface {
	AutoAssign(ctx context.Context, tx *gorm.DB, q availability.Query, n int) ([]domain.Room, error)
	Verify(ctx context.Context, tx *gorm.DB, roomID int64, q availability.Query) (*domain.Room, error)
}

type DiscountRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64, userID int64, bookingID *int64) (*discount.Redemption, error)
}

type RefundCalculator interface {
	ItemRefund(item domain.BookingItem, rt domain.RoomType, now time.Time) int64
	BookingRefund(items []domain.BookingItem, types map[int64]domain.RoomType, now time.Time) refund.Breakdown
}

// RoomGuard is the single writer of room status.
type RoomGuard interface {
	Apply(ctx context.Context, tx *gorm.DB, roomID int64, to domain.RoomStatus, opts roomstate.Options) (*roomstate.Change, error)
	Publish(changes ...*roomstate.Change)
}
