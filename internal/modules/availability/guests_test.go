package availability

import (
	"testing"

	"hotelengine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestGuestsFitsRoomType(t *testing.T) {
	double := domain.RoomType{Name: "Double", Capacity: 2, BaseAdults: 2}
	family := domain.RoomType{Name: "Family", Capacity: 6, BaseAdults: 2}

	cases := []struct {
		name   string
		guests Guests
		rt     domain.RoomType
		ok     bool
	}{
		{"two adults in a double", Guests{Adults: 2}, double, true},
		{"infants are not counted", Guests{Adults: 2, Infants: 2}, double, true},
		{"over capacity", Guests{Adults: 2, Children: 1}, double, false},
		{"no adult", Guests{Children: 1}, double, false},
		{"one extra adult allowed", Guests{Adults: 3}, family, true},
		{"two extra adults rejected", Guests{Adults: 4}, family, false},
		{"platform cap beats capacity", Guests{Adults: 2, Children: 3}, family, false},
		{"negative children", Guests{Adults: 1, Children: -1}, family, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.guests.FitsRoomType(tc.rt)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrGuestPolicy)
		})
	}
}
