package domain

import "fmt"

// StayStatus ids are persisted and shared with other systems. Never renumber them.
type StayStatus int

const (
	StayReserved   StayStatus = 1
	StayCheckedIn  StayStatus = 2
	StayCheckedOut StayStatus = 3
	StayCancelled  StayStatus = 4
	StayNoShow     StayStatus = 5
	StayPending    StayStatus = 6
)

// ActiveStayStatuses are the states whose booking items block a room's calendar.
var ActiveStayStatuses = []StayStatus{StayPending, StayReserved, StayCheckedIn}

var stayStatusNames = map[StayStatus]string{
	StayReserved:   "reserved",
	StayCheckedIn:  "checked_in",
	StayCheckedOut: "checked_out",
	StayCancelled:  "cancelled",
	StayNoShow:     "no_show",
	StayPending:    "pending",
}

func (s StayStatus) String() string {
	if name, ok := stayStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stay_status(%d)", int(s))
}

func (s StayStatus) Valid() bool {
	_, ok := stayStatusNames[s]
	return ok
}

func (s StayStatus) Terminal() bool {
	return s == StayCheckedOut || s == StayCancelled || s == StayNoShow
}

func (s StayStatus) Active() bool {
	for _, a := range ActiveStayStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// StayStatusRow is the lookup table row; ids are assigned explicitly.
type StayStatusRow struct {
	ID   int    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:name;size:32;not null;uniqueIndex"`
}

func (StayStatusRow) TableName() string { return "stay_statuses" }

// StayStatusRows lists every status in id order, used by migrations and seeding.
func StayStatusRows() []StayStatusRow {
	out := make([]StayStatusRow, 0, len(stayStatusNames))
	for id := StayReserved; id <= StayPending; id++ {
		out = append(out, StayStatusRow{ID: int(id), Name: id.String()})
	}
	return out
}
