package refund

import "hotelengine/internal/pkg/apperr"

var (
	ErrRequestNotFound   = apperr.New(apperr.KindNotFound, "refund_request_not_found", "Refund request not found")
	ErrBookingNotFound   = apperr.New(apperr.KindNotFound, "booking_not_found", "Booking not found")
	ErrItemNotFound      = apperr.New(apperr.KindNotFound, "booking_item_not_found", "Booking item not found")
	ErrTargetRequired    = apperr.New(apperr.KindValidation, "refund_target", "Exactly one of booking_id or booking_item_id is required")
	ErrInvalidBank       = apperr.New(apperr.KindValidation, "refund_bank_details", "Bank details are incomplete")
	ErrNotCancelled      = apperr.New(apperr.KindInvalidState, "refund_not_cancelled", "Only cancelled bookings or items can be refunded")
	ErrNothingToRefund   = apperr.New(apperr.KindValidation, "refund_nothing_due", "No refund is due")
	ErrAmountTooHigh     = apperr.New(apperr.KindValidation, "refund_amount_too_high", "Requested amount exceeds the eligible refund")
	ErrActiveRequest     = apperr.New(apperr.KindConflict, "refund_request_exists", "An active refund request already exists")
	ErrIllegalTransition = apperr.New(apperr.KindInvalidState, "refund_illegal_transition", "Refund request cannot move to this status")
	ErrForbidden         = apperr.New(apperr.KindForbidden, "refund_forbidden", "You cannot request a refund for this booking")
)
