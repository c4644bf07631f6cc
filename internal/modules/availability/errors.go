package availability

import "hotelengine/internal/pkg/apperr"

var (
	ErrInvalidRange          = apperr.New(apperr.KindValidation, "invalid_date_range", "Check-out must be after check-in")
	ErrGuestPolicy           = apperr.New(apperr.KindValidation, "guest_policy", "Guest count is not allowed")
	ErrRoomNotFound          = apperr.New(apperr.KindNotFound, "room_not_found", "Room not found")
	ErrRoomUnavailable       = apperr.New(apperr.KindConflict, "room_unavailable", "Room is not available for the selected dates")
	ErrDuplicateRoom         = apperr.New(apperr.KindConflict, "duplicate_room", "Room is requested twice for overlapping dates")
	ErrInsufficientInventory = apperr.New(apperr.KindConflict, "insufficient_inventory", "Not enough rooms available")
)
