package availability

import (
	"time"

	"hotelengine/internal/pkg/clock"
)

// Interval is a half-open stay [Start, End) of calendar dates. Back-to-back stays do not overlap.
type Interval struct {
	Start time.Time `json:"check_in"`
	End   time.Time `json:"check_out"`
}

// NewInterval normalizes both ends to UTC midnights.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: clock.DateOnly(start), End: clock.DateOnly(end)}
	if !iv.End.After(iv.Start) {
		return Interval{}, ErrInvalidRange
	}
	return iv, nil
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Nights() int {
	return int(i.End.Sub(i.Start).Hours() / 24)
}

// IntervalSet tracks intervals already claimed per room within one request.
type IntervalSet map[int64][]Interval

// Claim records iv for roomID; it returns false if it overlaps an earlier claim.
func (s IntervalSet) Claim(roomID int64, iv Interval) bool {
	for _, existing := range s[roomID] {
		if existing.Overlaps(iv) {
			return false
		}
	}
	s[roomID] = append(s[roomID], iv)
	return true
}

// Rooms lists the rooms claimed over an interval overlapping iv.
func (s IntervalSet) Rooms(iv Interval) []int64 {
	var out []int64
	for roomID, ivs := range s {
		for _, existing := range ivs {
			if existing.Overlaps(iv) {
				out = append(out, roomID)
				break
			}
		}
	}
	return out
}
