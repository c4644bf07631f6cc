package booking

import "hotelengine/internal/domain"

// adminTransitions are the stay changes staff may set directly. Check-in and check-out
// have dedicated operations and are not reachable from here.
var adminTransitions = map[domain.StayStatus][]domain.StayStatus{
	domain.StayPending:   {domain.StayReserved, domain.StayCancelled},
	domain.StayReserved:  {domain.StayPending, domain.StayCancelled, domain.StayNoShow},
	domain.StayCheckedIn: {domain.StayCancelled},
}

func canAdminSet(from, to domain.StayStatus) bool {
	for _, next := range adminTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// requireStatus fails with ErrInvalidTransition unless b is in one of allowed.
func requireStatus(b *domain.Booking, to domain.StayStatus, allowed ...domain.StayStatus) error {
	for _, s := range allowed {
		if b.StayStatusID == s {
			return nil
		}
	}
	return transitionError(b.StayStatusID, to)
}

func transitionError(from, to domain.StayStatus) error {
	return ErrInvalidTransition.WithDetails(map[string]any{
		"from": from.String(),
		"to":   to.String(),
	})
}
