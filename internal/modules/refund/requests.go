package refund

import (
	"context"
	"encoding/json"
	"errors"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/clock"
	"hotelengine/internal/pkg/mailer"
	"hotelengine/internal/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	mailer mailer.Mailer
	log    *logrus.Logger
}

func NewService(db *gorm.DB, clk clock.Clock, m mailer.Mailer, log *logrus.Logger) *Service {
	return &Service{db: db, clock: clk, mailer: m, log: log}
}

type CreateRequest struct {
	BookingID     *int64             `json:"booking_id"`
	BookingItemID *int64             `json:"booking_item_id"`
	Amount        int64              `json:"amount"`
	BankDetails   domain.BankDetails `json:"bank_details"`
}

// Create files a refund request against a cancelled booking or item. Amount 0 asks for the
// whole eligible refund.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req CreateRequest) (*domain.RefundRequest, error) {
	if (req.BookingID == nil) == (req.BookingItemID == nil) {
		return nil, ErrTargetRequired
	}
	if errs := validator.Validate(req.BankDetails); errs != nil {
		return nil, ErrInvalidBank.WithDetails(map[string]any{"fields": errs})
	}
	if req.Amount < 0 {
		return nil, ErrAmountTooHigh.WithMessage("Amount cannot be negative")
	}
	bank, err := json.Marshal(req.BankDetails)
	if err != nil {
		return nil, err
	}

	var out domain.RefundRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eligible, err := s.eligible(tx, actor, req)
		if err != nil {
			return err
		}
		if eligible <= 0 {
			return ErrNothingToRefund
		}
		amount := req.Amount
		if amount == 0 {
			amount = eligible
		}
		if amount > eligible {
			return ErrAmountTooHigh.WithDetails(map[string]any{"eligible": eligible})
		}

		active := tx.Model(&domain.RefundRequest{}).Where("status <> ?", domain.RefundRejected)
		if req.BookingID != nil {
			active = active.Where("booking_id = ?", *req.BookingID)
		} else {
			active = active.Where("booking_item_id = ?", *req.BookingItemID)
		}
		var n int64
		if err := active.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrActiveRequest
		}

		out = domain.RefundRequest{
			Reference:     uuid.NewString(),
			BookingID:     req.BookingID,
			BookingItemID: req.BookingItemID,
			Amount:        amount,
			BankDetails:   bank,
			Status:        domain.RefundPending,
			RequestedBy:   actor.UserIDPtr(),
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// eligible locks the owning booking and returns the refund recorded at cancellation.
func (s *Service) eligible(tx *gorm.DB, actor domain.Actor, req CreateRequest) (int64, error) {
	var item domain.BookingItem
	bookingID := int64(0)
	if req.BookingItemID != nil {
		err := tx.First(&item, *req.BookingItemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrItemNotFound
		}
		if err != nil {
			return 0, err
		}
		bookingID = item.BookingID
	} else {
		bookingID = *req.BookingID
	}

	var b domain.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrBookingNotFound
	}
	if err != nil {
		return 0, err
	}
	if !actor.IsStaff() && !b.OwnedBy(actor.UserID) {
		return 0, ErrForbidden
	}

	if req.BookingItemID != nil {
		if item.Status != domain.ItemCancelled {
			return 0, ErrNotCancelled
		}
		return item.RefundAmount, nil
	}
	if b.StayStatusID != domain.StayCancelled {
		return 0, ErrNotCancelled
	}
	return b.RefundAmount, nil
}

func (s *Service) Approve(ctx context.Context, actor domain.Actor, id int64) (*domain.RefundRequest, error) {
	return s.transition(ctx, actor, id, domain.RefundApproved, "", nil)
}

func (s *Service) Reject(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.RefundRequest, error) {
	return s.transition(ctx, actor, id, domain.RefundRejected, reason, nil)
}

// Complete marks the payout done. Booking-level refunds also flip the booking to refunded.
// The guest is notified after commit; a mail failure is only logged.
func (s *Service) Complete(ctx context.Context, actor domain.Actor, id int64) (*domain.RefundRequest, error) {
	var email string
	var bookingID int64
	rr, err := s.transition(ctx, actor, id, domain.RefundCompleted, "", func(tx *gorm.DB, rr *domain.RefundRequest) error {
		var b domain.Booking
		if rr.BookingID != nil {
			if err := tx.First(&b, *rr.BookingID).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Booking{}).Where("id = ?", b.ID).
				Update("payment_status", domain.PaymentRefunded).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Joins("JOIN booking_items ON booking_items.booking_id = bookings.id").
				Where("booking_items.id = ?", *rr.BookingItemID).First(&b).Error; err != nil {
				return err
			}
		}
		email, bookingID = b.CustomerEmail, b.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if email != "" {
		notice := mailer.RefundNotice{Reference: rr.Reference, BookingID: bookingID, Amount: rr.Amount, Status: string(rr.Status)}
		if err := s.mailer.SendRefundNotification(ctx, email, notice); err != nil {
			s.log.WithError(err).WithField("refund_request_id", rr.ID).Warn("refund notification failed")
		}
	}
	return rr, nil
}

var refundTransitions = map[domain.RefundStatus][]domain.RefundStatus{
	domain.RefundPending:  {domain.RefundApproved, domain.RefundRejected},
	domain.RefundApproved: {domain.RefundCompleted, domain.RefundRejected},
}

func (s *Service) transition(ctx context.Context, actor domain.Actor, id int64, to domain.RefundStatus, reason string,
	sideEffect func(tx *gorm.DB, rr *domain.RefundRequest) error) (*domain.RefundRequest, error) {
	var rr domain.RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rr, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}

		allowed := false
		for _, next := range refundTransitions[rr.Status] {
			allowed = allowed || next == to
		}
		if !allowed {
			return ErrIllegalTransition.WithDetails(map[string]any{"from": rr.Status, "to": to})
		}

		now := s.clock.Now()
		rr.Status = to
		rr.ProcessedBy = actor.UserIDPtr()
		rr.ProcessedAt = &now
		if to == domain.RefundRejected {
			rr.RejectReason = reason
		}
		if err := tx.Model(&domain.RefundRequest{}).Where("id = ?", rr.ID).Updates(map[string]any{
			"status":        rr.Status,
			"processed_by":  rr.ProcessedBy,
			"processed_at":  rr.ProcessedAt,
			"reject_reason": rr.RejectReason,
		}).Error; err != nil {
			return err
		}

		if sideEffect != nil {
			return sideEffect(tx, &rr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

type ListFilter struct {
	Status    domain.RefundStatus
	BookingID int64
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.RefundRequest, error) {
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BookingID != 0 {
		q = q.Where("booking_id = ? OR booking_item_id IN (?)", f.BookingID,
			s.db.Model(&domain.BookingItem{}).Select("id").Where("booking_id = ?", f.BookingID))
	}
	var out []domain.RefundRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
