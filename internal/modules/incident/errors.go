package incident

import "hotelengine/internal/pkg/apperr"

var (
	ErrIncidentNotFound  = apperr.New(apperr.KindNotFound, "incident_not_found", "Incident not found")
	ErrBookingNotFound   = apperr.New(apperr.KindNotFound, "booking_not_found", "Booking not found")
	ErrRoomNotFound      = apperr.New(apperr.KindNotFound, "room_not_found", "Room not found")
	ErrEquipmentNotFound = apperr.New(apperr.KindNotFound, "equipment_not_found", "Equipment not found")

	ErrNotInHouse      = apperr.New(apperr.KindInvalidState, "booking_not_in_house", "Incidents can only be reported for checked-in or checked-out bookings")
	ErrNoWorkingDevice = apperr.New(apperr.KindInvalidState, "no_working_device", "The room has no working device of this equipment")
	ErrAlreadyFixed    = apperr.New(apperr.KindInvalidState, "incident_already_fixed", "Incident is already resolved")

	ErrRoomNotInBooking        = apperr.New(apperr.KindValidation, "room_not_in_booking", "Room is not part of this booking")
	ErrNotStandard             = apperr.New(apperr.KindValidation, "equipment_not_standard", "Equipment is not part of this room type's standard")
	ErrInvalidQuantity         = apperr.New(apperr.KindValidation, "invalid_quantity", "Quantity must be at least 1")
	ErrQuantityExceedsDevice   = apperr.New(apperr.KindValidation, "quantity_exceeds_device", "Quantity exceeds the devices in the room")
	ErrQuantityExceedsStandard = apperr.New(apperr.KindValidation, "quantity_exceeds_standard", "Quantity exceeds the room type standard")
	ErrReasonRequired          = apperr.New(apperr.KindValidation, "reason_required", "A reason is required")

	ErrStaffOnly = apperr.New(apperr.KindForbidden, "staff_only", "Staff role required")
)
