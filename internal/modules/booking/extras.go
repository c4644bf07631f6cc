package booking

import (
	"context"
	"errors"

	"hotelengine/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AddService adds quantity units of an extra service at its current price.
func (s *Service) AddService(ctx context.Context, actor domain.Actor, bookingID int64, req AddServiceRequest) (*domain.BookingServiceLine, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	var line domain.BookingServiceLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && !b.OwnedBy(actor.UserID) {
			return ErrForbidden
		}
		if err := requireStatus(b, b.StayStatusID, domain.StayPending, domain.StayReserved, domain.StayCheckedIn); err != nil {
			return err
		}

		var svc domain.ExtraService
		err = tx.Where("id = ? AND active = ?", req.ServiceID, true).First(&svc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceNotFound
		}
		if err != nil {
			return err
		}

		line = domain.BookingServiceLine{
			BookingID: b.ID,
			ServiceID: svc.ID,
			Quantity:  req.Quantity,
			UnitPrice: svc.Price,
			Amount:    svc.Price * int64(req.Quantity),
			AddedBy:   actor.UserIDPtr(),
		}
		if err := tx.Create(&line).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).
			Update("total_price", gorm.Expr("total_price + ?", line.Amount)).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": bookingID, "service_id": line.ServiceID, "amount": line.Amount}).Info("service added")
	return &line, nil
}

// ApplyDiscount redeems a code against an existing booking. Only one code per booking.
func (s *Service) ApplyDiscount(ctx context.Context, actor domain.Actor, bookingID int64, code string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, bookingID); err != nil {
			return err
		}
		if !actor.IsStaff() && !b.OwnedBy(actor.UserID) {
			return ErrForbidden
		}
		if err := requireStatus(b, b.StayStatusID, domain.StayPending, domain.StayReserved); err != nil {
			return err
		}
		if b.DiscountCode != nil {
			return ErrDiscountApplied
		}

		var uid int64
		if b.UserID != nil {
			uid = *b.UserID
		}
		red, err := s.discounts.Redeem(ctx, tx, code, b.TotalPrice, uid, &b.ID)
		if err != nil {
			return err
		}
		b.DiscountCode = &red.Code
		b.DiscountAmount = red.Amount
		b.TotalPrice -= red.Amount
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
			"total_price":     b.TotalPrice,
			"discount_code":   b.DiscountCode,
			"discount_amount": b.DiscountAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "code": *b.DiscountCode, "amount": b.DiscountAmount}).Info("discount applied")
	return b, nil
}

// Ledger recomputes the booking total from its parts and compares it with the stored one.
func (s *Service) Ledger(ctx context.Context, actor domain.Actor, bookingID int64) (*Ledger, error) {
	b, err := s.Get(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	l := Ledger{Discount: b.DiscountAmount, Recorded: b.TotalPrice}
	for _, it := range activeItems(b) {
		l.Items += it.Price
	}
	for _, line := range b.Services {
		l.Services += line.Amount
	}
	var incidents struct{ Total int64 }
	if err := s.db.WithContext(ctx).Model(&domain.BookingIncident{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("booking_id = ?", bookingID).
		Scan(&incidents).Error; err != nil {
		return nil, err
	}
	l.Incidents = incidents.Total
	l.Expected = l.Items + l.Services + l.Incidents - l.Discount
	l.Consistent = l.Expected == l.Recorded
	return &l, nil
}
