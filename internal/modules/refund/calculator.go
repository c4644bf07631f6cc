package refund

import (
	"math"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/clock"
)

const defaultRefundPercent = 100

// Calculator derives refunds from the room type's policy. Deadlines count back from the
// venue check-in cutoff of the item's first night.
type Calculator struct {
	venue clock.Venue
}

func NewCalculator(venue clock.Venue) Calculator {
	return Calculator{venue: venue}
}

// ItemRefund is the refund for one item cancelled at now.
func (c Calculator) ItemRefund(item domain.BookingItem, rt domain.RoomType, now time.Time) int64 {
	if rt.NonRefundable || !rt.Refundable {
		return 0
	}
	if rt.RefundDeadlineHours != nil {
		deadline := time.Duration(*rt.RefundDeadlineHours) * time.Hour
		if c.venue.CheckInCutoff(item.CheckIn).Sub(now) < deadline {
			return 0
		}
	}
	percent := defaultRefundPercent
	if rt.RefundPercent != nil {
		percent = *rt.RefundPercent
	}
	if percent <= 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	return int64(math.Round(float64(item.Price) * float64(percent) / 100))
}

type Breakdown struct {
	Total   int64           `json:"total"`
	PerItem map[int64]int64 `json:"per_item"`
}

// BookingRefund sums ItemRefund over the active items. Items whose room type is missing
// from types contribute nothing.
func (c Calculator) BookingRefund(items []domain.BookingItem, types map[int64]domain.RoomType, now time.Time) Breakdown {
	out := Breakdown{PerItem: make(map[int64]int64, len(items))}
	for _, item := range items {
		if item.Status != domain.ItemActive {
			continue
		}
		rt, ok := types[item.RoomTypeID]
		if !ok {
			continue
		}
		amount := c.ItemRefund(item, rt, now)
		out.PerItem[item.ID] = amount
		out.Total += amount
	}
	return out
}
