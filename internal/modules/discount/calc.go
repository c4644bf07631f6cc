package discount

import (
	"math"
	"time"

	"hotelengine/internal/domain"
)

// Amount computes the discount of dc on total. It never exceeds total.
func Amount(dc domain.DiscountCode, total int64) int64 {
	if total <= 0 {
		return 0
	}
	var amount int64
	switch dc.Type {
	case domain.DiscountPercent:
		amount = int64(math.Round(float64(dc.Value) * float64(total) / 100))
		if dc.MaxDiscountAmount > 0 && amount > dc.MaxDiscountAmount {
			amount = dc.MaxDiscountAmount
		}
	case domain.DiscountFixed:
		amount = dc.Value
	}
	if amount > total {
		amount = total
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// lapsed reports whether the code's end date is before today (venue calendar).
func lapsed(dc domain.DiscountCode, today time.Time) bool {
	return dc.EndDate != nil && dc.EndDate.Before(today)
}

// validate runs the applicability checks shared by CheckCode and Redeem. userUses is the
// caller's current usage count (ignored when userID is 0).
func validate(dc domain.DiscountCode, total int64, userID int64, userUses int, today time.Time) error {
	switch {
	case dc.Status == domain.DiscountExpired || lapsed(dc, today):
		return ErrCodeExpired
	case dc.Status != domain.DiscountActive:
		return ErrCodeInactive
	case dc.StartDate != nil && today.Before(*dc.StartDate):
		return ErrCodeNotStarted.WithDetails(map[string]any{"start_date": dc.StartDate.UTC().Format(time.DateOnly)})
	case total < dc.MinTotal:
		return ErrBelowMinTotal.WithDetails(map[string]any{"min_total": dc.MinTotal})
	case dc.MaxUses > 0 && dc.UsedCount >= dc.MaxUses:
		return ErrUsageLimit
	}
	if dc.MaxUsesPerUser > 0 && userID != 0 && userUses >= dc.MaxUsesPerUser {
		return ErrUserUsageLimit
	}
	return nil
}

func remaining(limit, used int) *int {
	if limit <= 0 {
		return nil
	}
	left := limit - used
	if left < 0 {
		left = 0
	}
	return &left
}
