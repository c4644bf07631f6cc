package booking

import (
	"context"
	"errors"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/modules/availability"
	"hotelengine/internal/pkg/apperr"
	"hotelengine/internal/pkg/clock"
	"hotelengine/internal/pkg/mailer"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Policy holds the configurable booking rules.
type Policy struct {
	MinNights                int
	MaxNights                int
	MaxAdvanceDays           int
	SameDayBookingCutoffHour int
	// AdminCancelKeepsMaintenance leaves rooms in maintenance when staff cancel a booking.
	AdminCancelKeepsMaintenance bool
}

func DefaultPolicy() Policy {
	return Policy{MinNights: 1, MaxNights: 30, MaxAdvanceDays: 365, SameDayBookingCutoffHour: 22}
}

type Deps struct {
	Rooms     RoomAllocator
	Discounts DiscountRedeemer
	Refunds   RefundCalculator
	Guard     RoomGuard
	Mailer    mailer.Mailer
	Clock     clock.Clock
	CheckIn   clock.Policy
	Venue     clock.Venue
	Policy    Policy
	Log       *logrus.Logger
}

type Service struct {
	db        *gorm.DB
	rooms     RoomAllocator
	discounts DiscountRedeemer
	refunds   RefundCalculator
	guard     RoomGuard
	mailer    mailer.Mailer
	clock     clock.Clock
	checkIn   clock.Policy
	venue     clock.Venue
	policy    Policy
	log       *logrus.Logger
}

func NewService(db *gorm.DB, d Deps) *Service {
	if d.CheckIn == nil {
		d.CheckIn = clock.Strict
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &Service{
		db:        db,
		rooms:     d.Rooms,
		discounts: d.Discounts,
		refunds:   d.Refunds,
		guard:     d.Guard,
		mailer:    d.Mailer,
		clock:     d.Clock,
		checkIn:   d.CheckIn,
		venue:     d.Venue,
		policy:    d.Policy,
		log:       d.Log,
	}
}

type plannedItem struct {
	req      ItemRequest
	interval availability.Interval
	guests   availability.Guests
}

// Create validates the request, allocates rooms and writes the booking with its items in
// one transaction. Online bookings start Pending; staff and offline bookings start Reserved.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if len(req.RoomsConfig) > 0 && string(req.RoomsConfig) != "null" {
		return nil, ErrLegacyRoomsConfig
	}
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if req.Source == "" {
		req.Source = domain.SourceOnline
	}
	if req.Source != domain.SourceOnline && req.Source != domain.SourceOffline {
		return nil, ErrInvalidItem.WithMessage("Unknown booking source %q", req.Source)
	}
	if req.Source == domain.SourceOffline && !actor.IsStaff() {
		return nil, ErrStaffOnly
	}

	now := s.clock.Now()
	plan := make([]plannedItem, 0, len(req.Items))
	for i, it := range req.Items {
		p, err := s.planItem(it, req.Source, now)
		if err != nil {
			return nil, withItemIndex(err, i)
		}
		plan = append(plan, p)
	}

	status := domain.StayPending
	if actor.IsStaff() {
		status = domain.StayReserved
	}
	userID := actor.UserIDPtr()
	if actor.IsStaff() {
		userID = req.UserID
	}

	b := domain.Booking{
		ReferenceCode: uuid.NewString(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		UserID:        userID,
		Source:        req.Source,
		StayStatusID:  status,
		PaymentStatus: domain.PaymentUnpaid,
		PaymentMethod: req.PaymentMethod,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&b).Error; err != nil {
			return err
		}

		claimed := availability.IntervalSet{}
		var subtotal int64
		for i, p := range plan {
			rooms, err := s.allocate(ctx, tx, p, claimed)
			if err != nil {
				return withItemIndex(err, i)
			}
			for _, room := range rooms {
				item, err := s.insertItem(tx, b.ID, room, p)
				if err != nil {
					return err
				}
				subtotal += item.Price
				b.Items = append(b.Items, *item)
			}
		}

		b.TotalPrice = subtotal
		if req.DiscountCode != "" {
			var uid int64
			if b.UserID != nil {
				uid = *b.UserID
			}
			red, err := s.discounts.Redeem(ctx, tx, req.DiscountCode, subtotal, uid, &b.ID)
			if err != nil {
				return err
			}
			b.DiscountCode = &red.Code
			b.DiscountAmount = red.Amount
			b.TotalPrice = subtotal - red.Amount
		}

		return tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
			"total_price":     b.TotalPrice,
			"discount_code":   b.DiscountCode,
			"discount_amount": b.DiscountAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"reference":  b.ReferenceCode,
		"items":      len(b.Items),
		"total":      b.TotalPrice,
		"status":     b.StayStatusID.String(),
	}).Info("booking created")
	return &b, nil
}

func (s *Service) planItem(it ItemRequest, source domain.BookingSource, now time.Time) (plannedItem, error) {
	iv, err := availability.NewInterval(it.CheckIn.Time, it.CheckOut.Time)
	if err != nil {
		return plannedItem{}, err
	}
	g := availability.Guests{Adults: it.Adults, Children: it.Children, Infants: it.Infants}
	if err := g.Validate(); err != nil {
		return plannedItem{}, err
	}
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	if it.Quantity < 0 {
		return plannedItem{}, ErrInvalidQuantity
	}
	if it.RoomID == nil && it.RoomTypeID == 0 {
		return plannedItem{}, ErrInvalidItem.WithMessage("Either room_id or room_type_id is required")
	}
	if it.RoomID != nil && it.Quantity != 1 {
		return plannedItem{}, ErrInvalidItem.WithMessage("quantity must be 1 when room_id is set")
	}
	if err := s.checkStayBounds(iv, source, now); err != nil {
		return plannedItem{}, err
	}
	return plannedItem{req: it, interval: iv, guests: g}, nil
}

// checkStayBounds applies the length, past, advance and same-day rules. Offline bookings
// skip only the time-of-day cutoff.
func (s *Service) checkStayBounds(iv availability.Interval, source domain.BookingSource, now time.Time) error {
	nights := iv.Nights()
	if nights < s.policy.MinNights || (s.policy.MaxNights > 0 && nights > s.policy.MaxNights) {
		return ErrStayLength.WithDetails(map[string]any{
			"nights":     nights,
			"min_nights": s.policy.MinNights,
			"max_nights": s.policy.MaxNights,
		})
	}

	today := s.venue.Today(now)
	if iv.Start.Before(today) {
		return ErrCheckInPast
	}
	if s.policy.MaxAdvanceDays > 0 && iv.Start.After(today.AddDate(0, 0, s.policy.MaxAdvanceDays)) {
		return ErrTooFarAhead.WithDetails(map[string]any{"max_advance_days": s.policy.MaxAdvanceDays})
	}
	if source == domain.SourceOnline && iv.Start.Equal(today) && s.venue.HourOfDay(now) >= s.policy.SameDayBookingCutoffHour {
		return ErrSameDayClosed.WithDetails(map[string]any{"cutoff_hour": s.policy.SameDayBookingCutoffHour})
	}
	return nil
}

func (s *Service) allocate(ctx context.Context, tx *gorm.DB, p plannedItem, claimed availability.IntervalSet) ([]domain.Room, error) {
	q := availability.Query{Interval: p.interval, Guests: p.guests}

	if p.req.RoomID != nil {
		if !claimed.Claim(*p.req.RoomID, p.interval) {
			return nil, availability.ErrDuplicateRoom
		}
		room, err := s.rooms.Verify(ctx, tx, *p.req.RoomID, q)
		if err != nil {
			return nil, err
		}
		return []domain.Room{*room}, nil
	}

	q.RoomTypeID = p.req.RoomTypeID
	q.Exclude = claimed.Rooms(p.interval)
	rooms, err := s.rooms.AutoAssign(ctx, tx, q, p.req.Quantity)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		claimed.Claim(r.ID, p.interval)
	}
	return rooms, nil
}

func (s *Service) insertItem(tx *gorm.DB, bookingID int64, room domain.Room, p plannedItem) (*domain.BookingItem, error) {
	rt := room.RoomType
	if rt == nil {
		rt = &domain.RoomType{}
		if err := tx.First(rt, room.RoomTypeID).Error; err != nil {
			return nil, err
		}
	}
	if err := p.guests.FitsRoomType(*rt); err != nil {
		return nil, err
	}

	nights := p.interval.Nights()
	price, snap := Price(*rt, p.guests, nights)
	item := domain.BookingItem{
		BookingID:  bookingID,
		RoomID:     room.ID,
		RoomTypeID: rt.ID,
		CheckIn:    p.interval.Start,
		CheckOut:   p.interval.End,
		Adults:     p.guests.Adults,
		Children:   p.guests.Children,
		Infants:    p.guests.Infants,
		Nights:     nights,
		Price:      price,
		Pricing:    encodeSnapshot(snap),
		Status:     domain.ItemActive,
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Get returns a booking with its items and services. Customers only see their own.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Services").
		First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !b.OwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return &b, nil
}

// lockBooking loads and locks a booking row inside tx together with its items.
func lockBooking(tx *gorm.DB, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Where("booking_id = ?", id).Order("id").Find(&b.Items).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func activeItems(b *domain.Booking) []domain.BookingItem {
	out := make([]domain.BookingItem, 0, len(b.Items))
	for _, it := range b.Items {
		if it.Status == domain.ItemActive {
			out = append(out, it)
		}
	}
	return out
}

func roomTypesFor(tx *gorm.DB, items []domain.BookingItem) (map[int64]domain.RoomType, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.RoomTypeID)
	}
	out := make(map[int64]domain.RoomType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var types []domain.RoomType
	if err := tx.Where("id IN ?", ids).Find(&types).Error; err != nil {
		return nil, err
	}
	for _, rt := range types {
		out[rt.ID] = rt
	}
	return out, nil
}

// withItemIndex tags a classified error with the offending item's position in the request.
func withItemIndex(err error, index int) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return err
	}
	details := map[string]any{"item_index": index}
	for k, v := range ae.Details {
		details[k] = v
	}
	return ae.WithDetails(details)
}
