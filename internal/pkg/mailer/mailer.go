package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

type RefundNotice struct {
	Reference string
	BookingID int64
	Amount    int64
	Status    string
}

// Mailer delivers guest notifications. Callers treat failures as non-fatal.
type Mailer interface {
	SendConfirmation(ctx context.Context, email string, bookingID int64) error
	SendRefundNotification(ctx context.Context, email string, notice RefundNotice) error
}

// LogMailer writes notifications to the log instead of sending them.
type LogMailer struct {
	log *logrus.Logger
}

func NewLogMailer(log *logrus.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendConfirmation(_ context.Context, email string, bookingID int64) error {
	m.log.WithFields(logrus.Fields{
		"to":         email,
		"booking_id": bookingID,
	}).Info("booking confirmation queued")
	return nil
}

func (m *LogMailer) SendRefundNotification(_ context.Context, email string, notice RefundNotice) error {
	m.log.WithFields(logrus.Fields{
		"to":         email,
		"reference":  notice.Reference,
		"booking_id": notice.BookingID,
		"amount":     notice.Amount,
		"status":     notice.Status,
	}).Info("refund notification queued")
	return nil
}
