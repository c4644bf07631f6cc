// Package roomstate owns every write to rooms.status. Booking, incident and housekeeping
// flows go through Guard so transitions are checked in one place.
package roomstate

import (
	"context"
	"errors"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/apperr"
	"hotelengine/internal/pkg/clock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoomNotFound      = apperr.New(apperr.KindNotFound, "room_not_found", "Room not found")
	ErrIllegalTransition = apperr.New(apperr.KindInvalidState, "illegal_room_transition", "Room status transition is not allowed")
	ErrInvalidStatus     = apperr.New(apperr.KindValidation, "invalid_room_status", "Unknown room status")
)

var transitions = map[domain.RoomStatus][]domain.RoomStatus{
	domain.RoomAvailable:   {domain.RoomOccupied, domain.RoomBooked, domain.RoomCleaning, domain.RoomMaintenance},
	domain.RoomBooked:      {domain.RoomAvailable, domain.RoomOccupied, domain.RoomMaintenance},
	domain.RoomOccupied:    {domain.RoomCleaning, domain.RoomMaintenance},
	domain.RoomCleaning:    {domain.RoomAvailable, domain.RoomOccupied, domain.RoomMaintenance},
	domain.RoomMaintenance: {domain.RoomAvailable, domain.RoomCleaning},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to domain.RoomStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Change struct {
	RoomID   int64             `json:"room_id"`
	RoomName string            `json:"room_name"`
	From     domain.RoomStatus `json:"from"`
	To       domain.RoomStatus `json:"to"`
	Reason   string            `json:"reason,omitempty"`
	At       time.Time         `json:"at"`
}

// Publisher receives committed room changes.
type Publisher interface {
	Publish(change Change)
}

type Options struct {
	// Force skips the transition table. Used by administrative overrides.
	Force  bool
	Reason string
	// OnlyFrom turns the call into a no-op unless the room is currently in one of these states.
	OnlyFrom []domain.RoomStatus
}

type Guard struct {
	clock     clock.Clock
	publisher Publisher
	log       *logrus.Logger
}

func NewGuard(clk clock.Clock, publisher Publisher, log *logrus.Logger) *Guard {
	return &Guard{clock: clk, publisher: publisher, log: log}
}

// Apply moves a room to status `to` inside tx. The room row is locked first. It returns
// nil (and no error) when nothing changed.
func (g *Guard) Apply(ctx context.Context, tx *gorm.DB, roomID int64, to domain.RoomStatus, opts Options) (*Change, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	var room domain.Room
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	if room.Status == to {
		return nil, nil
	}
	if len(opts.OnlyFrom) > 0 && !contains(opts.OnlyFrom, room.Status) {
		return nil, nil
	}
	if !opts.Force && !CanTransition(room.Status, to) {
		return nil, ErrIllegalTransition.WithDetails(map[string]any{
			"room_id": room.ID,
			"from":    room.Status,
			"to":      to,
		})
	}

	if err := tx.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", room.ID).Update("status", to).Error; err != nil {
		return nil, err
	}

	return &Change{
		RoomID:   room.ID,
		RoomName: room.Name,
		From:     room.Status,
		To:       to,
		Reason:   opts.Reason,
		At:       g.clock.Now(),
	}, nil
}

// Publish forwards committed changes. Call it only after the transaction that produced
// them has committed.
func (g *Guard) Publish(changes ...*Change) {
	for _, ch := range changes {
		if ch == nil {
			continue
		}
		if g.log != nil {
			g.log.WithFields(logrus.Fields{
				"room_id": ch.RoomID,
				"from":    ch.From,
				"to":      ch.To,
				"reason":  ch.Reason,
			}).Info("room status changed")
		}
		if g.publisher != nil {
			g.publisher.Publish(*ch)
		}
	}
}

// MarkClean finishes housekeeping: cleaning -> available.
func (g *Guard) MarkClean(ctx context.Context, db *gorm.DB, roomID int64) (*Change, error) {
	return g.Set(ctx, db, roomID, domain.RoomAvailable, Options{
		Reason:   "housekeeping done",
		OnlyFrom: []domain.RoomStatus{domain.RoomCleaning},
	})
}

// Set runs Apply in its own transaction and publishes the result.
func (g *Guard) Set(ctx context.Context, db *gorm.DB, roomID int64, to domain.RoomStatus, opts Options) (*Change, error) {
	var change *Change
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = g.Apply(ctx, tx, roomID, to, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	g.Publish(change)
	return change, nil
}

func contains(list []domain.RoomStatus, s domain.RoomStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
