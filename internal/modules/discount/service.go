package discount

import (
	"context"
	"errors"
	"strings"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/apperr"
	"hotelengine/internal/pkg/clock"
	"hotelengine/internal/pkg/validator"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	clock clock.Clock
	venue clock.Venue
	log   *logrus.Logger
}

func NewService(db *gorm.DB, clk clock.Clock, venue clock.Venue, log *logrus.Logger) *Service {
	return &Service{db: db, clock: clk, venue: venue, log: log}
}

// CheckResult: nil remaining counters mean unlimited.
type CheckResult struct {
	Code              string `json:"code"`
	DiscountAmount    int64  `json:"discount_amount"`
	RemainingUses     *int   `json:"remaining_uses"`
	RemainingUserUses *int   `json:"remaining_user_uses"`
}

type Redemption struct {
	CodeID int64  `json:"code_id"`
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

// Normalize upper-cases and trims a code as typed by a guest.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckCode validates code against total without consuming it. The only write it may do is
// flipping a lapsed code to expired.
func (s *Service) CheckCode(ctx context.Context, code string, total int64, userID int64) (*CheckResult, error) {
	dc, err := s.lookup(ctx, s.db.WithContext(ctx), code, false)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfLapsed(ctx, dc); err != nil {
		return nil, err
	}

	uses, err := userUsage(s.db.WithContext(ctx), dc.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := validate(*dc, total, userID, uses, s.today()); err != nil {
		return nil, err
	}

	res := &CheckResult{
		Code:           dc.Code,
		DiscountAmount: Amount(*dc, total),
		RemainingUses:  remaining(dc.MaxUses, dc.UsedCount),
	}
	if userID != 0 {
		res.RemainingUserUses = remaining(dc.MaxUsesPerUser, uses)
	}
	return res, nil
}

// Redeem validates and consumes one use of code inside tx. The code row is locked, the
// global counter is bumped with a conditional UPDATE and the per-user counter with an
// upsert that is re-checked before returning. Any failure leaves the caller's transaction
// to roll back.
func (s *Service) Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64, userID int64, bookingID *int64) (*Redemption, error) {
	tx = tx.WithContext(ctx)

	dc, err := s.lookup(ctx, tx, code, true)
	if err != nil {
		return nil, err
	}
	if dc.MaxUsesPerUser > 0 && userID == 0 {
		return nil, ErrLoginRequired
	}

	uses, err := userUsage(tx, dc.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := validate(*dc, subtotal, userID, uses, s.today()); err != nil {
		return nil, err
	}

	consumed := tx.Model(&domain.DiscountCode{}).
		Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", dc.ID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if consumed.Error != nil {
		return nil, consumed.Error
	}
	if consumed.RowsAffected == 0 {
		return nil, ErrUsageLimit
	}

	if userID != 0 {
		if err := s.recordUsage(tx, dc, userID, bookingID); err != nil {
			return nil, err
		}
	}

	return &Redemption{CodeID: dc.ID, Code: dc.Code, Amount: Amount(*dc, subtotal)}, nil
}

// ApplyCode consumes one use of code for a booking in its own transaction.
func (s *Service) ApplyCode(ctx context.Context, code string, subtotal int64, userID int64, bookingID *int64) (*Redemption, error) {
	var out *Redemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.Redeem(ctx, tx, code, subtotal, userID, bookingID)
		return err
	})
	if errors.Is(err, ErrCodeExpired) {
		// record the expiry outside the rolled back transaction
		if dc, lerr := s.lookup(ctx, s.db.WithContext(ctx), code, false); lerr == nil {
			if xerr := s.expireIfLapsed(ctx, dc); xerr != nil {
				s.log.WithError(xerr).WithField("code", dc.Code).Warn("discount expiry not recorded")
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) recordUsage(tx *gorm.DB, dc *domain.DiscountCode, userID int64, bookingID *int64) error {
	now := s.clock.Now()
	usage := domain.DiscountCodeUsage{
		CodeID:     dc.ID,
		UserID:     userID,
		UsageCount: 1,
		BookingID:  bookingID,
		UsedAt:     now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"usage_count": gorm.Expr("discount_code_usages.usage_count + 1"),
			"used_at":     now,
			"booking_id":  bookingID,
		}),
	}).Create(&usage).Error
	if err != nil {
		return apperr.FromDB(err)
	}

	if dc.MaxUsesPerUser == 0 {
		return nil
	}
	var after domain.DiscountCodeUsage
	if err := tx.Where("code_id = ? AND user_id = ?", dc.ID, userID).First(&after).Error; err != nil {
		return err
	}
	if after.UsageCount > dc.MaxUsesPerUser {
		return ErrUserUsageLimit
	}
	return nil
}

// lookup loads a code, optionally locking it. It never writes: inside a caller's transaction
// an expiry flip would be rolled back with the failed redemption. validate rejects lapsed
// codes whatever their stored status.
func (s *Service) lookup(ctx context.Context, db *gorm.DB, code string, lock bool) (*domain.DiscountCode, error) {
	code = Normalize(code)
	if code == "" {
		return nil, ErrInvalidCodeInput
	}

	q := db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var dc domain.DiscountCode
	err := q.Where("code = ?", code).First(&dc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	return &dc, nil
}

// expireIfLapsed flips an active code past its end date to expired. It writes through s.db
// and must not run inside another transaction.
func (s *Service) expireIfLapsed(ctx context.Context, dc *domain.DiscountCode) error {
	if dc.Status != domain.DiscountActive || !lapsed(*dc, s.today()) {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&domain.DiscountCode{}).
		Where("id = ? AND status = ?", dc.ID, domain.DiscountActive).
		Update("status", domain.DiscountExpired).Error; err != nil {
		return err
	}
	dc.Status = domain.DiscountExpired
	s.log.WithField("code", dc.Code).Info("discount code expired")
	return nil
}

func userUsage(db *gorm.DB, codeID, userID int64) (int, error) {
	if userID == 0 {
		return 0, nil
	}
	var usage domain.DiscountCodeUsage
	err := db.Where("code_id = ? AND user_id = ?", codeID, userID).Limit(1).Find(&usage).Error
	if err != nil {
		return 0, err
	}
	return usage.UsageCount, nil
}

// ExpireLapsed flips every active code whose end date passed to expired.
func (s *Service) ExpireLapsed(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.DiscountCode{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", domain.DiscountActive, s.today()).
		Update("status", domain.DiscountExpired)
	return res.RowsAffected, res.Error
}

type CreateRequest struct {
	Code              string              `json:"code" validate:"required,min=3,max=50"`
	Type              domain.DiscountType `json:"type" validate:"required,oneof=percent fixed"`
	Value             int64               `json:"value" validate:"gt=0"`
	MinTotal          int64               `json:"min_total" validate:"gte=0"`
	MaxUses           int                 `json:"max_uses" validate:"gte=0"`
	MaxUsesPerUser    int                 `json:"max_uses_per_user" validate:"gte=0"`
	MaxDiscountAmount int64               `json:"max_discount_amount" validate:"gte=0"`
	StartDate         *time.Time          `json:"start_date"`
	EndDate           *time.Time          `json:"end_date"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.DiscountCode, error) {
	req.Code = Normalize(req.Code)
	if errs := validator.Validate(req); errs != nil {
		return nil, ErrInvalidCodeInput.WithDetails(map[string]any{"fields": errs})
	}
	if req.Type == domain.DiscountPercent && req.Value > 100 {
		return nil, ErrInvalidCodeInput.WithMessage("Percent discount cannot exceed 100")
	}
	dc := domain.DiscountCode{
		Code:              req.Code,
		Type:              req.Type,
		Value:             req.Value,
		MinTotal:          req.MinTotal,
		MaxUses:           req.MaxUses,
		MaxUsesPerUser:    req.MaxUsesPerUser,
		MaxDiscountAmount: req.MaxDiscountAmount,
		Status:            domain.DiscountActive,
	}
	if req.StartDate != nil {
		d := clock.LocalDate(*req.StartDate)
		dc.StartDate = &d
	}
	if req.EndDate != nil {
		d := clock.LocalDate(*req.EndDate)
		dc.EndDate = &d
	}
	if dc.StartDate != nil && dc.EndDate != nil && dc.EndDate.Before(*dc.StartDate) {
		return nil, ErrInvalidCodeInput.WithMessage("end_date must not be before start_date")
	}

	if err := s.db.WithContext(ctx).Create(&dc).Error; err != nil {
		if apperr.IsDuplicate(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return &dc, nil
}

// List returns all codes newest first, after expiring lapsed ones.
func (s *Service) List(ctx context.Context) ([]domain.DiscountCode, error) {
	if _, err := s.ExpireLapsed(ctx); err != nil {
		return nil, err
	}
	var codes []domain.DiscountCode
	if err := s.db.WithContext(ctx).Order("created_at desc, id desc").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Service) Get(ctx context.Context, code string) (*domain.DiscountCode, error) {
	dc, err := s.lookup(ctx, s.db.WithContext(ctx), code, false)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfLapsed(ctx, dc); err != nil {
		return nil, err
	}
	return dc, nil
}

func (s *Service) today() time.Time {
	return s.venue.Today(s.clock.Now())
}
