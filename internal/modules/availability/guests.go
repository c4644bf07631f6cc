package availability

import "hotelengine/internal/domain"

// PlatformMaxGuests caps adults+children per room regardless of room type. Infants are not counted.
const PlatformMaxGuests = 4

type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

func (g Guests) Total() int {
	return g.Adults + g.Children
}

// Validate checks the room-type independent rules.
func (g Guests) Validate() error {
	if g.Adults < 1 {
		return ErrGuestPolicy.WithMessage("At least one adult is required")
	}
	if g.Children < 0 || g.Infants < 0 {
		return ErrGuestPolicy.WithMessage("Guest counts cannot be negative")
	}
	if g.Total() > PlatformMaxGuests {
		return ErrGuestPolicy.WithMessage("At most %d guests per room", PlatformMaxGuests)
	}
	return nil
}

// FitsRoomType applies the type's capacity and the one-extra-adult rule.
func (g Guests) FitsRoomType(rt domain.RoomType) error {
	if err := g.Validate(); err != nil {
		return err
	}
	limit := rt.Capacity
	if limit > PlatformMaxGuests {
		limit = PlatformMaxGuests
	}
	if g.Total() > limit {
		return ErrGuestPolicy.WithMessage("Room type %s holds at most %d guests", rt.Name, limit)
	}
	if rt.BaseAdults > 0 && g.Adults > rt.BaseAdults+1 {
		return ErrGuestPolicy.WithMessage("Room type %s allows at most %d adults", rt.Name, rt.BaseAdults+1)
	}
	return nil
}
