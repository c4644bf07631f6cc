package booking

import (
	"context"
	"errors"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/modules/roomstate"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CheckIn moves a Reserved booking to CheckedIn. Rooms of items whose check-in cutoff has
// passed become occupied. If no item is open yet the call fails with ErrTooEarly and the
// earliest cutoff, unless the clock policy is permissive.
func (s *Service) CheckIn(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}

	var b *domain.Booking
	var changes []*roomstate.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, id); err != nil {
			return err
		}
		if err := requireStatus(b, domain.StayCheckedIn, domain.StayReserved); err != nil {
			return err
		}

		now := s.clock.Now()
		var earliest time.Time
		var held []int64
		opened := 0
		for _, item := range activeItems(b) {
			cutoff := s.venue.CheckInCutoff(item.CheckIn)
			if earliest.IsZero() || cutoff.Before(earliest) {
				earliest = cutoff
			}
			if !s.checkIn.Allows(now, cutoff) {
				continue
			}
			var room domain.Room
			if err := tx.Select("id", "status").Take(&room, item.RoomID).Error; err != nil {
				return err
			}
			// a room under repair stays in maintenance; the guest is moved by staff
			if room.Status == domain.RoomMaintenance {
				held = append(held, room.ID)
				continue
			}
			ch, err := s.guard.Apply(ctx, tx, item.RoomID, domain.RoomOccupied, roomstate.Options{Reason: "check-in"})
			if err != nil {
				return err
			}
			changes = append(changes, ch)
			opened++
		}
		if len(held) > 0 {
			s.log.WithFields(logrus.Fields{"booking_id": b.ID, "room_ids": held}).Warn("check-in skipped rooms in maintenance")
		}
		if opened == 0 && len(held) > 0 {
			return ErrRoomsInMaintenance.WithDetails(map[string]any{"room_ids": held})
		}
		if opened == 0 {
			details := map[string]any{"policy": s.checkIn.Name()}
			if !earliest.IsZero() {
				details["earliest_check_in"] = earliest.Format(time.RFC3339)
			}
			return ErrTooEarly.WithDetails(details)
		}

		b.StayStatusID = domain.StayCheckedIn
		b.CheckedInBy = actor.UserIDPtr()
		b.CheckedInAt = &now
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
			"stay_status_id": b.StayStatusID,
			"checked_in_by":  b.CheckedInBy,
			"checked_in_at":  b.CheckedInAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.guard.Publish(changes...)
	s.logTransition(b, "checked in", actor)
	return b, nil
}

// CheckOut moves a CheckedIn booking to CheckedOut. Calling it again on a CheckedOut booking
// re-applies the room target without touching checked_out_at. Rooms go to maintenance when
// the booking has a pending incident, else to cleaning.
func (s *Service) CheckOut(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}

	var b *domain.Booking
	var changes []*roomstate.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, id); err != nil {
			return err
		}
		if err := requireStatus(b, domain.StayCheckedOut, domain.StayCheckedIn, domain.StayCheckedOut); err != nil {
			return err
		}

		var pending int64
		if err := tx.Model(&domain.BookingIncident{}).
			Where("booking_id = ? AND status = ?", b.ID, domain.IncidentPending).
			Count(&pending).Error; err != nil {
			return err
		}

		rooms := distinctRooms(activeItems(b))
		leaving := b.StayStatusID == domain.StayCheckedIn

		// rooms with a pending incident from any booking are not released to cleaning
		var repairs []int64
		if len(rooms) > 0 {
			if err := tx.Model(&domain.BookingIncident{}).
				Where("room_id IN ? AND status = ?", rooms, domain.IncidentPending).
				Distinct().Pluck("room_id", &repairs).Error; err != nil {
				return err
			}
		}

		target := domain.RoomCleaning
		reason := "check-out"
		if pending > 0 {
			target = domain.RoomMaintenance
			reason = "check-out with pending incident"
		}
		for _, roomID := range rooms {
			opts := roomstate.Options{Reason: reason, OnlyFrom: checkOutSources(target, leaving, containsID(repairs, roomID))}
			ch, err := s.guard.Apply(ctx, tx, roomID, target, opts)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}

		if b.StayStatusID == domain.StayCheckedOut {
			return nil
		}
		now := s.clock.Now()
		b.StayStatusID = domain.StayCheckedOut
		b.CheckedOutBy = actor.UserIDPtr()
		b.CheckedOutAt = &now
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
			"stay_status_id": b.StayStatusID,
			"checked_out_by": b.CheckedOutBy,
			"checked_out_at": b.CheckedOutAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.guard.Publish(changes...)
	s.logTransition(b, "checked out", actor)
	return b, nil
}

// Cancel is the guest/staff cancellation from Pending or Reserved. It records the refund
// due per item. Room status is untouched; the booking simply stops blocking its dates.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, id); err != nil {
			return err
		}
		if !actor.IsStaff() && !b.OwnedBy(actor.UserID) {
			return ErrForbidden
		}
		if err := requireStatus(b, domain.StayCancelled, domain.StayPending, domain.StayReserved); err != nil {
			return err
		}
		return s.cancelTx(tx, b, actor, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(b, "cancelled", actor)
	return b, nil
}

func (s *Service) cancelTx(tx *gorm.DB, b *domain.Booking, actor domain.Actor, reason string) error {
	items := activeItems(b)
	types, err := roomTypesFor(tx, items)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	refund := s.refunds.BookingRefund(items, types, now)

	for i := range b.Items {
		amount, ok := refund.PerItem[b.Items[i].ID]
		if !ok {
			continue
		}
		b.Items[i].RefundAmount = amount
		if err := tx.Model(&domain.BookingItem{}).Where("id = ?", b.Items[i].ID).
			Update("refund_amount", amount).Error; err != nil {
			return err
		}
	}

	b.StayStatusID = domain.StayCancelled
	b.CanceledBy = actor.UserIDPtr()
	b.CanceledAt = &now
	b.CancelReason = reason
	b.RefundAmount = refund.Total
	return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
		"stay_status_id": b.StayStatusID,
		"canceled_by":    b.CanceledBy,
		"canceled_at":    b.CanceledAt,
		"cancel_reason":  b.CancelReason,
		"refund_amount":  b.RefundAmount,
	}).Error
}

// CancelItem cancels one item of a Pending or Reserved booking. The total drops by the
// item price; when the discount would push it below zero the discount shrinks instead.
// Cancelling the last active item cancels the booking.
func (s *Service) CancelItem(ctx context.Context, actor domain.Actor, bookingID, itemID int64, reason string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, bookingID); err != nil {
			return err
		}
		if !actor.IsStaff() && !b.OwnedBy(actor.UserID) {
			return ErrForbidden
		}
		if err := requireStatus(b, domain.StayCancelled, domain.StayPending, domain.StayReserved); err != nil {
			return err
		}

		idx := -1
		for i := range b.Items {
			if b.Items[i].ID == itemID {
				idx = i
			}
		}
		if idx < 0 {
			return ErrItemNotFound
		}
		item := &b.Items[idx]
		if item.Status != domain.ItemActive {
			return ErrItemNotActive
		}

		types, err := roomTypesFor(tx, []domain.BookingItem{*item})
		if err != nil {
			return err
		}
		item.RefundAmount = s.refunds.ItemRefund(*item, types[item.RoomTypeID], s.clock.Now())
		item.Status = domain.ItemCancelled
		if err := tx.Model(&domain.BookingItem{}).Where("id = ?", item.ID).Updates(map[string]any{
			"status":        item.Status,
			"refund_amount": item.RefundAmount,
		}).Error; err != nil {
			return err
		}

		b.TotalPrice -= item.Price
		if b.TotalPrice < 0 {
			b.DiscountAmount += b.TotalPrice
			b.TotalPrice = 0
		}
		if err := tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
			"total_price":     b.TotalPrice,
			"discount_amount": b.DiscountAmount,
		}).Error; err != nil {
			return err
		}

		if len(activeItems(b)) > 0 {
			return nil
		}
		now := s.clock.Now()
		b.StayStatusID = domain.StayCancelled
		b.CanceledBy = actor.UserIDPtr()
		b.CanceledAt = &now
		b.CancelReason = reason
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
			"stay_status_id": b.StayStatusID,
			"canceled_by":    b.CanceledBy,
			"canceled_at":    b.CanceledAt,
			"cancel_reason":  b.CancelReason,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": bookingID, "item_id": itemID}).Info("booking item cancelled")
	return b, nil
}

// NoShow marks a Reserved booking whose guest never arrived.
func (s *Service) NoShow(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}

	var b *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, id); err != nil {
			return err
		}
		if err := requireStatus(b, domain.StayNoShow, domain.StayReserved); err != nil {
			return err
		}
		b.StayStatusID = domain.StayNoShow
		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Update("stay_status_id", b.StayStatusID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(b, "no-show", actor)
	return b, nil
}

// SweepNoShows marks every Reserved booking whose last check-in date is before the venue's
// today. Failures on one booking are logged and do not stop the sweep.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	today := s.venue.Today(s.clock.Now())

	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.BookingItem{}).
		Select("booking_items.booking_id").
		Joins("JOIN bookings ON bookings.id = booking_items.booking_id").
		Where("bookings.stay_status_id = ? AND booking_items.status = ?", domain.StayReserved, domain.ItemActive).
		Group("booking_items.booking_id").
		Having("MAX(booking_items.check_in) < ?", today).
		Pluck("booking_items.booking_id", &ids).Error
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, id := range ids {
		if _, err := s.NoShow(ctx, domain.SystemActor, id); err != nil {
			if !errors.Is(err, ErrInvalidTransition) {
				s.log.WithError(err).WithField("booking_id", id).Warn("no-show sweep failed")
			}
			continue
		}
		marked++
	}
	return marked, nil
}

// AdminUpdate applies staff edits. Setting the stay to Cancelled frees every room of the
// booking (rooms in maintenance are kept when the policy says so). A payment status change
// into paid sends a confirmation after commit; mail errors are logged only.
func (s *Service) AdminUpdate(ctx context.Context, actor domain.Actor, id int64, req AdminUpdateRequest) (*domain.Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return nil, ErrInvalidPayment
	}
	if req.StayStatusID != nil && !req.StayStatusID.Valid() {
		return nil, ErrInvalidStayStatus
	}

	var b *domain.Booking
	var changes []*roomstate.Change
	becamePaid := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBooking(tx, id); err != nil {
			return err
		}

		updates := map[string]any{}
		if req.PaymentStatus != nil && *req.PaymentStatus != b.PaymentStatus {
			becamePaid = *req.PaymentStatus == domain.PaymentPaid
			b.PaymentStatus = *req.PaymentStatus
			updates["payment_status"] = b.PaymentStatus
		}
		if req.PaymentMethod != nil {
			b.PaymentMethod = *req.PaymentMethod
			updates["payment_method"] = b.PaymentMethod
		}
		if req.CustomerName != nil {
			b.CustomerName = *req.CustomerName
			updates["customer_name"] = b.CustomerName
		}
		if req.CustomerEmail != nil {
			b.CustomerEmail = *req.CustomerEmail
			updates["customer_email"] = b.CustomerEmail
		}
		if req.CustomerPhone != nil {
			b.CustomerPhone = *req.CustomerPhone
			updates["customer_phone"] = b.CustomerPhone
		}
		if len(updates) > 0 {
			if err := tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if req.StayStatusID == nil || *req.StayStatusID == b.StayStatusID {
			return nil
		}
		to := *req.StayStatusID
		if !canAdminSet(b.StayStatusID, to) {
			return transitionError(b.StayStatusID, to)
		}
		if to != domain.StayCancelled {
			b.StayStatusID = to
			return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Update("stay_status_id", to).Error
		}

		reason := req.Reason
		if reason == "" {
			reason = "cancelled by staff"
		}
		if err := s.cancelTx(tx, b, actor, reason); err != nil {
			return err
		}
		opts := roomstate.Options{Force: true, Reason: "admin cancel"}
		if s.policy.AdminCancelKeepsMaintenance {
			opts.OnlyFrom = []domain.RoomStatus{domain.RoomOccupied, domain.RoomBooked, domain.RoomCleaning}
		}
		for _, roomID := range distinctRooms(b.Items) {
			ch, err := s.guard.Apply(ctx, tx, roomID, domain.RoomAvailable, opts)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Publish(changes...)
	if becamePaid {
		s.sendConfirmation(ctx, b)
	}
	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "actor": actor.UserID}).Info("booking updated by staff")
	return b, nil
}

func (s *Service) sendConfirmation(ctx context.Context, b *domain.Booking) {
	if s.mailer == nil || b.CustomerEmail == "" {
		return
	}
	if err := s.mailer.SendConfirmation(ctx, b.CustomerEmail, b.ID); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("confirmation email failed")
	}
}

func (s *Service) logTransition(b *domain.Booking, what string, actor domain.Actor) {
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"status":     b.StayStatusID.String(),
		"actor":      actor.UserID,
	}).Info("booking " + what)
}

// checkOutSources lists the room states check-out may move a room out of. On the first
// check-out a room that never became occupied, or was repaired mid-stay, is still turned
// over. A re-confirmation only touches rooms still occupied, since the others have moved on.
func checkOutSources(target domain.RoomStatus, leaving, underRepair bool) []domain.RoomStatus {
	from := []domain.RoomStatus{domain.RoomOccupied}
	if target == domain.RoomMaintenance {
		from = append(from, domain.RoomCleaning)
	}
	if !leaving {
		return from
	}
	from = append(from, domain.RoomAvailable)
	if target == domain.RoomCleaning && !underRepair {
		from = append(from, domain.RoomMaintenance)
	}
	return from
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func distinctRooms(items []domain.BookingItem) []int64 {
	seen := make(map[int64]bool, len(items))
	out := make([]int64, 0, len(items))
	for _, it := range items {
		if !seen[it.RoomID] {
			seen[it.RoomID] = true
			out = append(out, it.RoomID)
		}
	}
	return out
}
