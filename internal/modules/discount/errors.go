package discount

import "hotelengine/internal/pkg/apperr"

var (
	ErrCodeNotFound     = apperr.New(apperr.KindNotFound, "discount_not_found", "Discount code not found")
	ErrCodeInactive     = apperr.New(apperr.KindValidation, "discount_inactive", "Discount code is not active")
	ErrCodeNotStarted   = apperr.New(apperr.KindValidation, "discount_not_started", "Discount code is not valid yet")
	ErrCodeExpired      = apperr.New(apperr.KindValidation, "discount_expired", "Discount code has expired")
	ErrBelowMinTotal    = apperr.New(apperr.KindValidation, "discount_min_total", "Order total is below the code minimum")
	ErrUsageLimit       = apperr.New(apperr.KindConflict, "discount_usage_limit", "Discount code has been used up")
	ErrUserUsageLimit   = apperr.New(apperr.KindConflict, "discount_user_usage_limit", "You have already used this discount code the maximum number of times")
	ErrLoginRequired    = apperr.New(apperr.KindUnauthorized, "discount_login_required", "Sign in to use this discount code")
	ErrDuplicateCode    = apperr.New(apperr.KindConflict, "discount_duplicate", "Discount code already exists")
	ErrInvalidCodeInput = apperr.New(apperr.KindValidation, "discount_invalid", "Invalid discount code")
)
