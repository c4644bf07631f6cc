package booking

import "hotelengine/internal/pkg/apperr"

var (
	ErrBookingNotFound = apperr.New(apperr.KindNotFound, "booking_not_found", "Booking not found")
	ErrItemNotFound    = apperr.New(apperr.KindNotFound, "booking_item_not_found", "Booking item not found")
	ErrServiceNotFound = apperr.New(apperr.KindNotFound, "service_not_found", "Service not found")
	ErrForbidden       = apperr.New(apperr.KindForbidden, "booking_forbidden", "You are not allowed to act on this booking")
	ErrStaffOnly       = apperr.New(apperr.KindForbidden, "staff_only", "Staff role required")

	ErrInvalidTransition  = apperr.New(apperr.KindInvalidState, "invalid_stay_transition", "Booking cannot move to the requested status")
	ErrTooEarly           = apperr.New(apperr.KindInvalidState, "too_early", "Check-in is not open yet")
	ErrRoomsInMaintenance = apperr.New(apperr.KindInvalidState, "rooms_in_maintenance", "Every room open for check-in is under maintenance")
	ErrItemNotActive      = apperr.New(apperr.KindInvalidState, "item_not_active", "Booking item is already cancelled")
	ErrDiscountApplied    = apperr.New(apperr.KindConflict, "discount_already_applied", "A discount code is already applied to this booking")

	ErrLegacyRoomsConfig = apperr.New(apperr.KindValidation, "rooms_config_unsupported", "rooms_config is no longer supported, send items instead")
	ErrNoItems           = apperr.New(apperr.KindValidation, "items_required", "At least one item is required")
	ErrInvalidItem       = apperr.New(apperr.KindValidation, "invalid_item", "Invalid booking item")
	ErrStayLength        = apperr.New(apperr.KindValidation, "stay_length", "Stay length is out of bounds")
	ErrCheckInPast       = apperr.New(apperr.KindValidation, "check_in_past", "Check-in date is in the past")
	ErrTooFarAhead       = apperr.New(apperr.KindValidation, "too_far_ahead", "Check-in date is too far in the future")
	ErrSameDayClosed     = apperr.New(apperr.KindValidation, "same_day_closed", "Same-day online booking is closed for today")
	ErrInvalidQuantity   = apperr.New(apperr.KindValidation, "invalid_quantity", "Quantity must be at least 1")
	ErrInvalidPayment    = apperr.New(apperr.KindValidation, "invalid_payment_status", "Unknown payment status")
	ErrInvalidStayStatus = apperr.New(apperr.KindValidation, "invalid_stay_status", "Unknown stay status")
)
