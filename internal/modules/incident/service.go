// Package incident records damaged or missing equipment against a stay and keeps the
// booking total, device stock and room status in step with it.
package incident

import (
	"context"
	"errors"
	"strings"

	"hotelengine/internal/domain"
	"hotelengine/internal/modules/roomstate"
	"hotelengine/internal/pkg/clock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomGuard interface {
	Apply(ctx context.Context, tx *gorm.DB, roomID int64, to domain.RoomStatus, opts roomstate.Options) (*roomstate.Change, error)
	Publish(changes ...*roomstate.Change)
}

type ReportRequest struct {
	BookingID   int64  `json:"booking_id" binding:"required"`
	RoomID      int64  `json:"room_id" binding:"required"`
	EquipmentID int64  `json:"equipment_id" binding:"required"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
}

type RestockRequest struct {
	EquipmentID int64 `json:"equipment_id" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required"`
}

type Service struct {
	db    *gorm.DB
	guard RoomGuard
	clock clock.Clock
	log   *logrus.Logger
}

func NewService(db *gorm.DB, guard RoomGuard, clk clock.Clock, log *logrus.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{db: db, guard: guard, clock: clk, log: log}
}

// Report charges the booking for damaged equipment. Preconditions are checked in a fixed
// order so callers always see the first one that fails.
func (s *Service) Report(ctx context.Context, actor domain.Actor, req ReportRequest) (*domain.BookingIncident, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	var inc domain.BookingIncident
	var change *roomstate.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b domain.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, req.BookingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if b.StayStatusID != domain.StayCheckedIn && b.StayStatusID != domain.StayCheckedOut {
			return ErrNotInHouse.WithDetails(map[string]any{"stay_status": b.StayStatusID.String()})
		}

		var room domain.Room
		err = tx.First(&room, req.RoomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		var linked int64
		if err := tx.Model(&domain.BookingItem{}).
			Where("booking_id = ? AND room_id = ?", b.ID, room.ID).
			Count(&linked).Error; err != nil {
			return err
		}
		if linked == 0 {
			return ErrRoomNotInBooking
		}

		var std domain.RoomTypeEquipment
		err = tx.Where("room_type_id = ? AND equipment_id = ?", room.RoomTypeID, req.EquipmentID).First(&std).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotStandard
		}
		if err != nil {
			return err
		}

		var eq domain.Equipment
		err = tx.First(&eq, req.EquipmentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEquipmentNotFound
		}
		if err != nil {
			return err
		}

		var dev domain.RoomDevice
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ? AND equipment_id = ? AND status = ?", room.ID, eq.ID, domain.DeviceWorking).
			First(&dev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoWorkingDevice
		}
		if err != nil {
			return err
		}

		if req.Quantity > dev.Quantity {
			return ErrQuantityExceedsDevice.WithDetails(map[string]any{"available": dev.Quantity})
		}
		if req.Quantity > std.Quantity {
			return ErrQuantityExceedsStandard.WithDetails(map[string]any{"standard": std.Quantity})
		}

		inc = domain.BookingIncident{
			BookingID:         b.ID,
			RoomID:            room.ID,
			EquipmentID:       eq.ID,
			Quantity:          req.Quantity,
			Reason:            req.Reason,
			CompensationPrice: eq.CompensationPrice,
			Amount:            eq.CompensationPrice * int64(req.Quantity),
			Status:            domain.IncidentPending,
			ReportedBy:        actor.UserIDPtr(),
		}
		if err := tx.Create(&inc).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Booking{}).Where("id = ?", b.ID).
			Update("total_price", gorm.Expr("total_price + ?", inc.Amount)).Error; err != nil {
			return err
		}

		dev.Quantity -= req.Quantity
		if dev.Quantity <= 0 {
			dev.Quantity = 0
			dev.Status = domain.DeviceBroken
		}
		if err := tx.Model(&domain.RoomDevice{}).Where("id = ?", dev.ID).Updates(map[string]any{
			"quantity": dev.Quantity,
			"status":   dev.Status,
		}).Error; err != nil {
			return err
		}

		change, err = s.guard.Apply(ctx, tx, room.ID, domain.RoomMaintenance, roomstate.Options{Force: true, Reason: "incident reported"})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.guard.Publish(change)
	s.log.WithFields(logrus.Fields{
		"incident_id": inc.ID,
		"booking_id":  inc.BookingID,
		"room_id":     inc.RoomID,
		"amount":      inc.Amount,
	}).Info("incident reported")
	return &inc, nil
}

// Resolve marks an incident fixed. The room goes back to available once no other pending
// incident remains on it, but only out of maintenance or cleaning.
func (s *Service) Resolve(ctx context.Context, actor domain.Actor, id int64) (*domain.BookingIncident, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}

	var inc *domain.BookingIncident
	var change *roomstate.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if inc, err = lockIncident(tx, id); err != nil {
			return err
		}
		if inc.Status != domain.IncidentPending {
			return ErrAlreadyFixed
		}

		now := s.clock.Now()
		inc.Status = domain.IncidentFixed
		inc.ResolvedBy = actor.UserIDPtr()
		inc.ResolvedAt = &now
		if err := tx.Model(&domain.BookingIncident{}).Where("id = ?", inc.ID).Updates(map[string]any{
			"status":      inc.Status,
			"resolved_by": inc.ResolvedBy,
			"resolved_at": inc.ResolvedAt,
		}).Error; err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&domain.BookingIncident{}).
			Where("room_id = ? AND status = ? AND id <> ?", inc.RoomID, domain.IncidentPending, inc.ID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return nil
		}
		change, err = s.guard.Apply(ctx, tx, inc.RoomID, domain.RoomAvailable, roomstate.Options{
			Reason:   "incident resolved",
			OnlyFrom: []domain.RoomStatus{domain.RoomMaintenance, domain.RoomCleaning},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.guard.Publish(change)
	s.log.WithFields(logrus.Fields{"incident_id": inc.ID, "room_id": inc.RoomID}).Info("incident resolved")
	return inc, nil
}

// Delete soft-deletes an incident entered by mistake and takes its amount back off the
// booking. Device stock and room status stay as they are.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64, reason string) error {
	if !actor.IsStaff() {
		return ErrStaffOnly
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}

	var inc *domain.BookingIncident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if inc, err = lockIncident(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&domain.BookingIncident{}).Where("id = ?", inc.ID).Updates(map[string]any{
			"deleted_by":     actor.UserIDPtr(),
			"deleted_reason": reason,
		}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.BookingIncident{}, inc.ID).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Booking{}).Where("id = ?", inc.BookingID).
			Update("total_price", gorm.Expr("total_price - ?", inc.Amount)).Error
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"incident_id": id, "booking_id": inc.BookingID, "amount": inc.Amount}).Info("incident deleted")
	return nil
}

func (s *Service) ListByBooking(ctx context.Context, bookingID int64) ([]domain.BookingIncident, error) {
	var out []domain.BookingIncident
	err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("id").Find(&out).Error
	return out, err
}

// RestockDevice puts quantity devices back into a room, capped at the room type's upper
// bound, and marks the device working again.
func (s *Service) RestockDevice(ctx context.Context, actor domain.Actor, roomID int64, req RestockRequest) (*domain.RoomDevice, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var dev domain.RoomDevice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		err := tx.First(&room, roomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		var std domain.RoomTypeEquipment
		err = tx.Where("room_type_id = ? AND equipment_id = ?", room.RoomTypeID, req.EquipmentID).First(&std).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotStandard
		}
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ? AND equipment_id = ?", room.ID, req.EquipmentID).
			First(&dev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dev = domain.RoomDevice{RoomID: room.ID, EquipmentID: req.EquipmentID}
		} else if err != nil {
			return err
		}

		dev.Quantity = min(dev.Quantity+req.Quantity, std.UpperBound())
		dev.Status = domain.DeviceWorking
		return tx.Save(&dev).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"room_id": roomID, "equipment_id": req.EquipmentID, "quantity": dev.Quantity}).Info("device restocked")
	return &dev, nil
}

func lockIncident(tx *gorm.DB, id int64) (*domain.BookingIncident, error) {
	var inc domain.BookingIncident
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}
