package booking

import (
	"encoding/json"

	"hotelengine/internal/domain"
	"hotelengine/internal/modules/availability"
)

// Price quotes an item from the room type's current prices. The snapshot is stored on the
// item so later price changes do not touch existing bookings.
func Price(rt domain.RoomType, g availability.Guests, nights int) (int64, domain.PricingSnapshot) {
	extraAdults := g.Adults - rt.BaseAdults
	if extraAdults < 0 {
		extraAdults = 0
	}
	extraChildren := g.Children - rt.BaseChildren
	if extraChildren < 0 {
		extraChildren = 0
	}

	nightly := rt.BasePrice + int64(extraAdults)*rt.ExtraAdultFee + int64(extraChildren)*rt.ExtraChildFee
	snap := domain.PricingSnapshot{
		BasePrice:     rt.BasePrice,
		ExtraAdultFee: rt.ExtraAdultFee,
		ExtraChildFee: rt.ExtraChildFee,
		ExtraAdults:   extraAdults,
		ExtraChildren: extraChildren,
		NightlyRate:   nightly,
		Nights:        nights,
	}
	return nightly * int64(nights), snap
}

func encodeSnapshot(s domain.PricingSnapshot) []byte {
	b, _ := json.Marshal(s)
	return b
}
