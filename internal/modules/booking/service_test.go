package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/modules/availability"
	"hotelengine/internal/modules/discount"
	"hotelengine/internal/modules/incident"
	"hotelengine/internal/modules/refund"
	"hotelengine/internal/modules/roomstate"
	"hotelengine/internal/pkg/apperr"
	"hotelengine/internal/pkg/clock"
	"hotelengine/internal/pkg/mailer"
	"hotelengine/internal/testutil"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendConfirmation(ctx context.Context, email string, bookingID int64) error {
	return m.Called(ctx, email, bookingID).Error(0)
}

func (m *mockMailer) SendRefundNotification(ctx context.Context, email string, notice mailer.RefundNotice) error {
	return m.Called(ctx, email, notice).Error(0)
}

type recorder struct {
	mu      sync.Mutex
	changes []roomstate.Change
}

func (r *recorder) Publish(ch roomstate.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

var (
	guest = domain.Actor{UserID: 7, Role: domain.RoleCustomer}
	other = domain.Actor{UserID: 8, Role: domain.RoleCustomer}
	staff = domain.Actor{UserID: 1, Role: domain.RoleStaff}
)

type fixture struct {
	svc    *Service
	hotel  *testutil.Hotel
	clk    *clock.Fixed
	venue  clock.Venue
	mailer *mockMailer
	feed   *recorder
	rt     domain.RoomType
	r101   domain.Room
	r102   domain.Room
}

// newFixture starts the clock at 2024-06-01 10:00 venue time.
func newFixture(t *testing.T, tweak ...func(*Deps)) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	hotel := testutil.NewHotel(t, db)
	venue := testutil.Venue(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		hotel:  hotel,
		clk:    &clock.Fixed{T: testutil.At(venue, 2024, 6, 1, 10)},
		venue:  venue,
		mailer: &mockMailer{},
		feed:   &recorder{},
	}
	f.rt = hotel.RoomType(t, domain.RoomType{BasePrice: 1_000_000, Capacity: 3, BaseAdults: 2, ExtraAdultFee: 200_000})
	f.r101 = hotel.Room(t, "101", f.rt)
	f.r102 = hotel.Room(t, "102", f.rt)

	deps := Deps{
		Rooms:     availability.NewFinder(db),
		Discounts: discount.NewService(db, f.clk, venue, log),
		Refunds:   refund.NewCalculator(venue),
		Guard:     roomstate.NewGuard(f.clk, f.feed, log),
		Mailer:    f.mailer,
		Clock:     f.clk,
		Venue:     venue,
		Policy:    DefaultPolicy(),
		Log:       log,
	}
	for _, fn := range tweak {
		fn(&deps)
	}
	f.svc = NewService(db, deps)
	return f
}

func stay(roomID *int64, in, out time.Time) ItemRequest {
	return ItemRequest{
		RoomID:   roomID,
		CheckIn:  Date{in},
		CheckOut: Date{out},
		Adults:   2,
	}
}

func (f *fixture) reserved(t *testing.T, userID *int64, in, out time.Time) domain.Booking {
	t.Helper()
	return f.hotel.Booking(t, domain.StayReserved, userID, testutil.Stay{Room: f.r101, CheckIn: in, CheckOut: out, Price: 2_000_000})
}

func TestCreate_AutoAssignsAndPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := CreateBookingRequest{
		CustomerName: "Nguyen Van A",
		Items: []ItemRequest{{
			RoomTypeID: f.rt.ID,
			Quantity:   2,
			CheckIn:    NewDate(2024, 6, 10),
			CheckOut:   NewDate(2024, 6, 12),
			Adults:     3,
		}},
	}
	b, err := f.svc.Create(ctx, guest, req)
	require.NoError(t, err)

	assert.Equal(t, domain.StayPending, b.StayStatusID)
	require.NotNil(t, b.UserID)
	assert.Equal(t, guest.UserID, *b.UserID)
	require.Len(t, b.Items, 2)
	assert.Equal(t, f.r101.ID, b.Items[0].RoomID)
	assert.Equal(t, f.r102.ID, b.Items[1].RoomID)

	// one extra adult over base for two nights
	assert.Equal(t, int64(2_400_000), b.Items[0].Price)
	assert.Equal(t, int64(4_800_000), b.TotalPrice)

	var snap domain.PricingSnapshot
	require.NoError(t, json.Unmarshal(b.Items[0].Pricing, &snap))
	assert.Equal(t, int64(1_200_000), snap.NightlyRate)
	assert.Equal(t, 1, snap.ExtraAdults)

	// later price changes leave the stored item alone
	require.NoError(t, f.hotel.DB.Model(&domain.RoomType{}).Where("id = ?", f.rt.ID).Update("base_price", 5_000_000).Error)
	stored := f.hotel.Reload(t, b.ID)
	assert.Equal(t, int64(2_400_000), stored.Items[0].Price)
}

func TestCreate_StaffBookingStartsReserved(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.Create(context.Background(), staff, CreateBookingRequest{
		CustomerName: "Walk-in",
		Source:       domain.SourceOffline,
		UserID:       testutil.Int64(42),
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 1), testutil.Date(2024, 6, 2))},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StayReserved, b.StayStatusID)
	require.NotNil(t, b.UserID)
	assert.Equal(t, int64(42), *b.UserID)
}

func TestCreate_OfflineRequiresStaff(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), guest, CreateBookingRequest{
		CustomerName: "x",
		Source:       domain.SourceOffline,
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 11))},
	})
	assert.ErrorIs(t, err, ErrStaffOnly)
}

func TestCreate_RejectsLegacyRoomsConfig(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), guest, CreateBookingRequest{
		CustomerName: "x",
		RoomsConfig:  json.RawMessage(`[{"room_id":1}]`),
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 11))},
	})
	assert.ErrorIs(t, err, ErrLegacyRoomsConfig)

	_, err = f.svc.Create(context.Background(), guest, CreateBookingRequest{CustomerName: "x"})
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreate_StayBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   time.Time
		out  time.Time
		want error
	}{
		{"empty range", testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 10), availability.ErrInvalidRange},
		{"in the past", testutil.Date(2024, 5, 31), testutil.Date(2024, 6, 2), ErrCheckInPast},
		{"too long", testutil.Date(2024, 6, 10), testutil.Date(2024, 7, 20), ErrStayLength},
		{"too far ahead", testutil.Date(2025, 7, 1), testutil.Date(2025, 7, 2), ErrTooFarAhead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, guest, CreateBookingRequest{
				CustomerName: "x",
				Items:        []ItemRequest{stay(&f.r101.ID, tt.in, tt.out)},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_SameDayCutoffSkipsOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clk.T = testutil.At(f.venue, 2024, 6, 1, 23)

	today := []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 1), testutil.Date(2024, 6, 2))}

	_, err := f.svc.Create(ctx, guest, CreateBookingRequest{CustomerName: "x", Items: today})
	assert.ErrorIs(t, err, ErrSameDayClosed)

	_, err = f.svc.Create(ctx, staff, CreateBookingRequest{CustomerName: "x", Source: domain.SourceOffline, Items: today})
	assert.NoError(t, err)
}

func TestCreate_BackToBackAndOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reserved(t, nil, testutil.Date(2024, 6, 1), testutil.Date(2024, 6, 5))

	_, err := f.svc.Create(ctx, guest, CreateBookingRequest{
		CustomerName: "x",
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 5), testutil.Date(2024, 6, 8))},
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, guest, CreateBookingRequest{
		CustomerName: "x",
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 4), testutil.Date(2024, 6, 6))},
	})
	assert.ErrorIs(t, err, availability.ErrRoomUnavailable)
}

func TestCreate_SameRoomTwiceInOneRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), guest, CreateBookingRequest{
		CustomerName: "x",
		Items: []ItemRequest{
			stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12)),
			stay(&f.r101.ID, testutil.Date(2024, 6, 11), testutil.Date(2024, 6, 13)),
		},
	})
	assert.ErrorIs(t, err, availability.ErrDuplicateRoom)

	var count int64
	require.NoError(t, f.hotel.DB.Model(&domain.Booking{}).Count(&count).Error)
	assert.Zero(t, count, "failed create must not leave a booking behind")
}

func TestCreate_InsufficientInventoryIsAllOrNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), guest, CreateBookingRequest{
		CustomerName: "x",
		Items: []ItemRequest{{
			RoomTypeID: f.rt.ID, Quantity: 3, Adults: 1,
			CheckIn: NewDate(2024, 6, 10), CheckOut: NewDate(2024, 6, 11),
		}},
	})
	assert.ErrorIs(t, err, availability.ErrInsufficientInventory)

	var items int64
	require.NoError(t, f.hotel.DB.Model(&domain.BookingItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestCreate_ConcurrentRequestsNeverDoubleBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, domain.Actor{UserID: int64(100 + i), Role: domain.RoleCustomer}, CreateBookingRequest{
				CustomerName: "racer",
				Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, availability.IsAllocationConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	var items int64
	require.NoError(t, f.hotel.DB.Model(&domain.BookingItem{}).Where("room_id = ?", f.r101.ID).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}

func TestCreate_RandomConcurrentStaysNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r103 := f.hotel.Room(t, "103", f.rt)
	rooms := []int64{f.r101.ID, f.r102.ID, r103.ID}

	type attempt struct {
		roomID  *int64
		in, out time.Time
		err     error
	}
	rng := rand.New(rand.NewSource(20240601))
	attempts := make([]*attempt, 30)
	for i := range attempts {
		in := testutil.Date(2024, 6, 10).AddDate(0, 0, rng.Intn(10))
		a := &attempt{in: in, out: in.AddDate(0, 0, 1+rng.Intn(4))}
		// every fourth request leaves the room to auto-assignment
		if i%4 != 0 {
			id := rooms[rng.Intn(len(rooms))]
			a.roomID = &id
		}
		attempts[i] = a
	}

	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a *attempt) {
			defer wg.Done()
			item := stay(a.roomID, a.in, a.out)
			if a.roomID == nil {
				item.RoomTypeID = f.rt.ID
			}
			_, a.err = f.svc.Create(ctx, domain.Actor{UserID: int64(200 + i), Role: domain.RoleCustomer}, CreateBookingRequest{
				CustomerName: "racer",
				Items:        []ItemRequest{item},
			})
		}(i, a)
	}
	wg.Wait()

	var items []domain.BookingItem
	require.NoError(t, f.hotel.DB.
		Joins("JOIN bookings ON bookings.id = booking_items.booking_id").
		Where("booking_items.status = ? AND bookings.stay_status_id IN ?", domain.ItemActive, domain.ActiveStayStatuses).
		Find(&items).Error)

	overlaps := func(aIn, aOut, bIn, bOut time.Time) bool {
		return aIn.Before(bOut) && bIn.Before(aOut)
	}
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.RoomID == b.RoomID {
				assert.False(t, overlaps(a.CheckIn, a.CheckOut, b.CheckIn, b.CheckOut),
					"room %d: [%s, %s) overlaps [%s, %s)", a.RoomID,
					a.CheckIn.Format(time.DateOnly), a.CheckOut.Format(time.DateOnly),
					b.CheckIn.Format(time.DateOnly), b.CheckOut.Format(time.DateOnly))
			}
		}
	}

	// a rejected request must have collided with something that committed
	committed := 0
	for _, a := range attempts {
		if a.err == nil {
			committed++
			continue
		}
		require.True(t, availability.IsAllocationConflict(a.err), "unexpected error: %v", a.err)
		blocked := map[int64]bool{}
		for _, it := range items {
			if overlaps(a.in, a.out, it.CheckIn, it.CheckOut) {
				blocked[it.RoomID] = true
			}
		}
		if a.roomID != nil {
			assert.True(t, blocked[*a.roomID], "request for room %d rejected without a conflict", *a.roomID)
		} else {
			assert.Len(t, blocked, len(rooms), "auto-assign rejected while a room was free")
		}
	}
	assert.Equal(t, committed, len(items))
	assert.Positive(t, committed)
}

func TestCreate_WithDiscountCode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.hotel.DB.Create(&domain.DiscountCode{
		Code: "SUMMER10", Type: domain.DiscountPercent, Value: 10, MaxDiscountAmount: 150_000, Status: domain.DiscountActive,
	}).Error)

	b, err := f.svc.Create(context.Background(), guest, CreateBookingRequest{
		CustomerName: "x",
		DiscountCode: "summer10",
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))},
	})
	require.NoError(t, err)
	require.NotNil(t, b.DiscountCode)
	assert.Equal(t, "SUMMER10", *b.DiscountCode)
	assert.Equal(t, int64(150_000), b.DiscountAmount)
	assert.Equal(t, int64(1_850_000), b.TotalPrice)

	l, err := f.svc.Ledger(context.Background(), guest, b.ID)
	require.NoError(t, err)
	assert.True(t, l.Consistent)
}

func TestCheckIn_CutoffPolicy(t *testing.T) {
	t.Run("strict rejects before 14:00", func(t *testing.T) {
		f := newFixture(t)
		b := f.reserved(t, nil, testutil.Date(2024, 6, 1), testutil.Date(2024, 6, 3))

		_, err := f.svc.CheckIn(context.Background(), staff, b.ID)
		require.ErrorIs(t, err, ErrTooEarly)
		assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r101.ID))

		f.clk.T = testutil.At(f.venue, 2024, 6, 1, 14)
		got, err := f.svc.CheckIn(context.Background(), staff, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StayCheckedIn, got.StayStatusID)
		assert.Equal(t, domain.RoomOccupied, f.hotel.RoomStatus(t, f.r101.ID))
		require.Len(t, f.feed.changes, 1)
		assert.Equal(t, domain.RoomOccupied, f.feed.changes[0].To)
	})

	t.Run("permissive lets it through", func(t *testing.T) {
		f := newFixture(t, func(d *Deps) { d.CheckIn = clock.Permissive })
		b := f.reserved(t, nil, testutil.Date(2024, 6, 3), testutil.Date(2024, 6, 4))

		got, err := f.svc.CheckIn(context.Background(), staff, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StayCheckedIn, got.StayStatusID)
	})
}

func TestCheckIn_TooEarlyNamesEarliestCutoff(t *testing.T) {
	f := newFixture(t)
	b := f.reserved(t, nil, testutil.Date(2024, 6, 2), testutil.Date(2024, 6, 3))

	_, err := f.svc.CheckIn(context.Background(), staff, b.ID)
	require.ErrorIs(t, err, ErrTooEarly)

	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "2024-06-02T14:00:00+07:00", ae.Details["earliest_check_in"])
	assert.Equal(t, "strict", ae.Details["policy"])
}

func TestCheckIn_RequiresReserved(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.CheckIn = clock.Permissive })
	b := f.hotel.Booking(t, domain.StayPending, nil, testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 6, 1), CheckOut: testutil.Date(2024, 6, 2), Price: 1})

	_, err := f.svc.CheckIn(context.Background(), staff, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.CheckIn(context.Background(), guest, b.ID)
	assert.ErrorIs(t, err, ErrStaffOnly)
}

func TestCheckOut_RoomTarget(t *testing.T) {
	tests := []struct {
		name     string
		incident *domain.IncidentStatus
		want     domain.RoomStatus
	}{
		{"no incident goes to cleaning", nil, domain.RoomCleaning},
		{"pending incident goes to maintenance", ptr(domain.IncidentPending), domain.RoomMaintenance},
		{"fixed incident goes to cleaning", ptr(domain.IncidentFixed), domain.RoomCleaning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.hotel.Booking(t, domain.StayCheckedIn, nil, testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 5, 30), CheckOut: testutil.Date(2024, 6, 1), Price: 1})
			f.hotel.SetRoomStatus(t, f.r101.ID, domain.RoomOccupied)
			if tt.incident != nil {
				require.NoError(t, f.hotel.DB.Create(&domain.BookingIncident{
					BookingID: b.ID, RoomID: f.r101.ID, EquipmentID: 1, Quantity: 1, Amount: 1, Status: *tt.incident,
				}).Error)
			}

			got, err := f.svc.CheckOut(context.Background(), staff, b.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StayCheckedOut, got.StayStatusID)
			assert.Equal(t, tt.want, f.hotel.RoomStatus(t, f.r101.ID))
		})
	}
}

func TestCheckOut_Idempotent(t *testing.T) {
	f := newFixture(t)
	b := f.hotel.Booking(t, domain.StayCheckedIn, nil, testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 5, 30), CheckOut: testutil.Date(2024, 6, 1), Price: 1})
	f.hotel.SetRoomStatus(t, f.r101.ID, domain.RoomOccupied)

	first, err := f.svc.CheckOut(context.Background(), staff, b.ID)
	require.NoError(t, err)
	require.NotNil(t, first.CheckedOutAt)

	f.clk.T = f.clk.T.Add(2 * time.Hour)
	second, err := f.svc.CheckOut(context.Background(), staff, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StayCheckedOut, second.StayStatusID)
	assert.True(t, first.CheckedOutAt.Equal(*second.CheckedOutAt))
	assert.Equal(t, domain.RoomCleaning, f.hotel.RoomStatus(t, f.r101.ID))

	_, err = f.svc.CheckIn(context.Background(), staff, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckOut_TurnsOverRoomRepairedMidStay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)
	incidents := incident.NewService(f.hotel.DB, roomstate.NewGuard(f.clk, f.feed, log), f.clk, log)
	kettle := f.hotel.Equipment(t, "Kettle", 300_000)
	f.hotel.Standard(t, f.rt, kettle, 1, 1)
	f.hotel.Device(t, f.r101, kettle, 1, domain.DeviceWorking)

	b := f.reserved(t, nil, testutil.Date(2024, 6, 1), testutil.Date(2024, 6, 3))
	f.clk.T = testutil.At(f.venue, 2024, 6, 1, 15)
	_, err := f.svc.CheckIn(ctx, staff, b.ID)
	require.NoError(t, err)

	inc, err := incidents.Report(ctx, staff, incident.ReportRequest{
		BookingID: b.ID, RoomID: f.r101.ID, EquipmentID: kettle.ID, Quantity: 1, Reason: "cracked",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomMaintenance, f.hotel.RoomStatus(t, f.r101.ID))

	_, err = incidents.Resolve(ctx, staff, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r101.ID))

	_, err = f.svc.CheckOut(ctx, staff, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomCleaning, f.hotel.RoomStatus(t, f.r101.ID))

	// once housekeeping is done a re-confirmation leaves the room alone
	f.hotel.SetRoomStatus(t, f.r101.ID, domain.RoomAvailable)
	_, err = f.svc.CheckOut(ctx, staff, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r101.ID))
}

func TestCheckOut_RoomNotOccupied(t *testing.T) {
	tests := []struct {
		name          string
		from          domain.RoomStatus
		otherIncident bool
		want          domain.RoomStatus
	}{
		{"never occupied goes to cleaning", domain.RoomAvailable, false, domain.RoomCleaning},
		{"stale maintenance goes to cleaning", domain.RoomMaintenance, false, domain.RoomCleaning},
		{"maintenance held by another booking stays", domain.RoomMaintenance, true, domain.RoomMaintenance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.hotel.Booking(t, domain.StayCheckedIn, nil, testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 5, 30), CheckOut: testutil.Date(2024, 6, 1), Price: 1})
			f.hotel.SetRoomStatus(t, f.r101.ID, tt.from)
			if tt.otherIncident {
				prev := f.hotel.Booking(t, domain.StayCheckedOut, nil, testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 5, 28), CheckOut: testutil.Date(2024, 5, 30), Price: 1})
				require.NoError(t, f.hotel.DB.Create(&domain.BookingIncident{
					BookingID: prev.ID, RoomID: f.r101.ID, EquipmentID: 1, Quantity: 1, Amount: 1, Status: domain.IncidentPending,
				}).Error)
			}

			_, err := f.svc.CheckOut(context.Background(), staff, b.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.hotel.RoomStatus(t, f.r101.ID))
		})
	}
}

func TestCheckIn_RoomInMaintenance(t *testing.T) {
	t.Run("only room held fails and changes nothing", func(t *testing.T) {
		f := newFixture(t)
		b := f.reserved(t, nil, testutil.Date(2024, 6, 1), testutil.Date(2024, 6, 3))
		f.hotel.SetRoomStatus(t, f.r101.ID, domain.RoomMaintenance)
		f.clk.T = testutil.At(f.venue, 2024, 6, 1, 15)

		_, err := f.svc.CheckIn(context.Background(), staff, b.ID)
		require.ErrorIs(t, err, ErrRoomsInMaintenance)

		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, []int64{f.r101.ID}, ae.Details["room_ids"])
		assert.Equal(t, domain.StayReserved, f.hotel.Reload(t, b.ID).StayStatusID)
		assert.Equal(t, domain.RoomMaintenance, f.hotel.RoomStatus(t, f.r101.ID))
	})

	t.Run("other rooms still check in", func(t *testing.T) {
		f := newFixture(t)
		b := f.hotel.Booking(t, domain.StayReserved, nil,
			testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 6, 1), CheckOut: testutil.Date(2024, 6, 3), Price: 1},
			testutil.Stay{Room: f.r102, CheckIn: testutil.Date(2024, 6, 1), CheckOut: testutil.Date(2024, 6, 3), Price: 1},
		)
		f.hotel.SetRoomStatus(t, f.r101.ID, domain.RoomMaintenance)
		f.clk.T = testutil.At(f.venue, 2024, 6, 1, 15)

		got, err := f.svc.CheckIn(context.Background(), staff, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StayCheckedIn, got.StayStatusID)
		assert.Equal(t, domain.RoomMaintenance, f.hotel.RoomStatus(t, f.r101.ID))
		assert.Equal(t, domain.RoomOccupied, f.hotel.RoomStatus(t, f.r102.ID))
	})
}

func TestCancel_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.reserved(t, testutil.Int64(guest.UserID), testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))

	_, err := f.svc.Cancel(ctx, other, b.ID, "not mine")
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.Cancel(ctx, guest, b.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, domain.StayCancelled, got.StayStatusID)
	assert.Equal(t, int64(2_000_000), got.RefundAmount)
	assert.Equal(t, "plans changed", got.CancelReason)
	require.NotNil(t, got.CanceledBy)
	assert.Equal(t, guest.UserID, *got.CanceledBy)
	assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r101.ID))

	_, err = f.svc.Cancel(ctx, staff, b.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_ReleasesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.reserved(t, nil, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))

	_, err := f.svc.Cancel(ctx, staff, b.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, guest, CreateBookingRequest{
		CustomerName: "x",
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))},
	})
	assert.NoError(t, err)
}

func TestCancel_RefundInsideDeadline(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.hotel.DB.Model(&domain.RoomType{}).Where("id = ?", f.rt.ID).Updates(map[string]any{
		"refund_percent":        80,
		"refund_deadline_hours": 24,
	}).Error)
	// check-in cutoff is 2024-06-02 14:00, ten hours away
	f.clk.T = testutil.At(f.venue, 2024, 6, 2, 4)
	b := f.reserved(t, nil, testutil.Date(2024, 6, 2), testutil.Date(2024, 6, 3))

	got, err := f.svc.Cancel(context.Background(), staff, b.ID, "")
	require.NoError(t, err)
	assert.Zero(t, got.RefundAmount)
}

func TestAdminUpdate_CancelFreesRooms(t *testing.T) {
	setup := func(t *testing.T, f *fixture) domain.Booking {
		b := f.hotel.Booking(t, domain.StayCheckedIn, nil,
			testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 5, 31), CheckOut: testutil.Date(2024, 6, 2), Price: 1},
			testutil.Stay{Room: f.r102, CheckIn: testutil.Date(2024, 5, 31), CheckOut: testutil.Date(2024, 6, 2), Price: 1},
		)
		f.hotel.SetRoomStatus(t, f.r101.ID, domain.RoomOccupied)
		f.hotel.SetRoomStatus(t, f.r102.ID, domain.RoomMaintenance)
		return b
	}
	cancelled := domain.StayCancelled

	t.Run("force available", func(t *testing.T) {
		f := newFixture(t)
		b := setup(t, f)

		got, err := f.svc.AdminUpdate(context.Background(), staff, b.ID, AdminUpdateRequest{StayStatusID: &cancelled})
		require.NoError(t, err)
		assert.Equal(t, domain.StayCancelled, got.StayStatusID)
		assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r101.ID))
		assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r102.ID))
		assert.Len(t, f.feed.changes, 2)
	})

	t.Run("preserve maintenance", func(t *testing.T) {
		f := newFixture(t, func(d *Deps) { d.Policy.AdminCancelKeepsMaintenance = true })
		b := setup(t, f)

		_, err := f.svc.AdminUpdate(context.Background(), staff, b.ID, AdminUpdateRequest{StayStatusID: &cancelled})
		require.NoError(t, err)
		assert.Equal(t, domain.RoomAvailable, f.hotel.RoomStatus(t, f.r101.ID))
		assert.Equal(t, domain.RoomMaintenance, f.hotel.RoomStatus(t, f.r102.ID))
	})
}

func TestAdminUpdate_IllegalStayTransition(t *testing.T) {
	f := newFixture(t)
	b := f.hotel.Booking(t, domain.StayPending, nil, testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 6, 10), CheckOut: testutil.Date(2024, 6, 11), Price: 1})

	for _, to := range []domain.StayStatus{domain.StayCheckedIn, domain.StayCheckedOut, domain.StayNoShow} {
		_, err := f.svc.AdminUpdate(context.Background(), staff, b.ID, AdminUpdateRequest{StayStatusID: &to})
		assert.ErrorIs(t, err, ErrInvalidTransition, "pending -> %s", to)
	}

	reserved := domain.StayReserved
	got, err := f.svc.AdminUpdate(context.Background(), staff, b.ID, AdminUpdateRequest{StayStatusID: &reserved})
	require.NoError(t, err)
	assert.Equal(t, domain.StayReserved, got.StayStatusID)

	bogus := domain.StayStatus(42)
	_, err = f.svc.AdminUpdate(context.Background(), staff, b.ID, AdminUpdateRequest{StayStatusID: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStayStatus)
}

func TestAdminUpdate_PaidSendsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.reserved(t, nil, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))
	paid := domain.PaymentPaid

	f.mailer.On("SendConfirmation", mock.Anything, "guest@example.com", b.ID).Return(errors.New("smtp down")).Once()

	got, err := f.svc.AdminUpdate(ctx, staff, b.ID, AdminUpdateRequest{PaymentStatus: &paid})
	require.NoError(t, err, "mail failure must not fail the update")
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	// already paid: no second mail
	_, err = f.svc.AdminUpdate(ctx, staff, b.ID, AdminUpdateRequest{PaymentStatus: &paid})
	require.NoError(t, err)
	f.mailer.AssertNumberOfCalls(t, "SendConfirmation", 1)

	bad := domain.PaymentStatus("stolen")
	_, err = f.svc.AdminUpdate(ctx, staff, b.ID, AdminUpdateRequest{PaymentStatus: &bad})
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

func TestCancelItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.hotel.Booking(t, domain.StayReserved, testutil.Int64(guest.UserID),
		testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 6, 10), CheckOut: testutil.Date(2024, 6, 12), Price: 2_000_000},
		testutil.Stay{Room: f.r102, CheckIn: testutil.Date(2024, 6, 10), CheckOut: testutil.Date(2024, 6, 11), Price: 1_000_000},
	)

	got, err := f.svc.CancelItem(ctx, guest, b.ID, b.Items[1].ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StayReserved, got.StayStatusID)
	assert.Equal(t, int64(2_000_000), got.TotalPrice)
	assert.Equal(t, int64(1_000_000), got.Items[1].RefundAmount)

	_, err = f.svc.CancelItem(ctx, guest, b.ID, b.Items[1].ID, "")
	assert.ErrorIs(t, err, ErrItemNotActive)

	_, err = f.svc.CancelItem(ctx, guest, b.ID, 9999, "")
	assert.ErrorIs(t, err, ErrItemNotFound)

	got, err = f.svc.CancelItem(ctx, guest, b.ID, b.Items[0].ID, "last one")
	require.NoError(t, err)
	assert.Equal(t, domain.StayCancelled, got.StayStatusID)
	assert.Zero(t, got.TotalPrice)

	l, err := f.svc.Ledger(ctx, staff, b.ID)
	require.NoError(t, err)
	assert.True(t, l.Consistent)
}

func TestCancelItem_ShrinksDiscountBelowZero(t *testing.T) {
	f := newFixture(t)
	b := f.hotel.Booking(t, domain.StayReserved, nil,
		testutil.Stay{Room: f.r101, CheckIn: testutil.Date(2024, 6, 10), CheckOut: testutil.Date(2024, 6, 11), Price: 1_000_000},
		testutil.Stay{Room: f.r102, CheckIn: testutil.Date(2024, 6, 10), CheckOut: testutil.Date(2024, 6, 11), Price: 300_000},
	)
	require.NoError(t, f.hotel.DB.Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]any{
		"discount_amount": 500_000,
		"total_price":     800_000,
	}).Error)

	got, err := f.svc.CancelItem(context.Background(), staff, b.ID, b.Items[0].ID, "")
	require.NoError(t, err)
	assert.Zero(t, got.TotalPrice)
	assert.Equal(t, int64(300_000), got.DiscountAmount)

	l, err := f.svc.Ledger(context.Background(), staff, b.ID)
	require.NoError(t, err)
	assert.True(t, l.Consistent)
}

func TestNoShowSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lapsed := f.reserved(t, nil, testutil.Date(2024, 5, 30), testutil.Date(2024, 6, 2))
	today := f.hotel.Booking(t, domain.StayReserved, nil, testutil.Stay{Room: f.r102, CheckIn: testutil.Date(2024, 6, 1), CheckOut: testutil.Date(2024, 6, 2), Price: 1})
	pending := f.hotel.Booking(t, domain.StayPending, nil, testutil.Stay{Room: f.r102, CheckIn: testutil.Date(2024, 5, 20), CheckOut: testutil.Date(2024, 5, 21), Price: 1})

	n, err := f.svc.SweepNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, domain.StayNoShow, f.hotel.Reload(t, lapsed.ID).StayStatusID)
	assert.Equal(t, domain.StayReserved, f.hotel.Reload(t, today.ID).StayStatusID)
	assert.Equal(t, domain.StayPending, f.hotel.Reload(t, pending.ID).StayStatusID)

	_, err = f.svc.NoShow(ctx, staff, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPriceConsistency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	breakfast := f.hotel.Service(t, "Breakfast", 150_000)
	require.NoError(t, f.hotel.DB.Create(&domain.DiscountCode{
		Code: "FLAT100", Type: domain.DiscountFixed, Value: 100_000, Status: domain.DiscountActive,
	}).Error)

	b, err := f.svc.Create(ctx, guest, CreateBookingRequest{
		CustomerName: "x",
		Items:        []ItemRequest{stay(&f.r101.ID, testutil.Date(2024, 6, 10), testutil.Date(2024, 6, 12))},
	})
	require.NoError(t, err)

	line, err := f.svc.AddService(ctx, guest, b.ID, AddServiceRequest{ServiceID: breakfast.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), line.Amount)

	got, err := f.svc.ApplyDiscount(ctx, guest, b.ID, "flat100")
	require.NoError(t, err)
	assert.Equal(t, int64(2_200_000), got.TotalPrice)

	_, err = f.svc.ApplyDiscount(ctx, guest, b.ID, "FLAT100")
	assert.ErrorIs(t, err, ErrDiscountApplied)

	_, err = f.svc.AddService(ctx, guest, b.ID, AddServiceRequest{ServiceID: 9999})
	assert.ErrorIs(t, err, ErrServiceNotFound)
	_, err = f.svc.AddService(ctx, other, b.ID, AddServiceRequest{ServiceID: breakfast.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	l, err := f.svc.Ledger(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), l.Items)
	assert.Equal(t, int64(300_000), l.Services)
	assert.Equal(t, int64(100_000), l.Discount)
	assert.True(t, l.Consistent)
}

func ptr[T any](v T) *T { return &v }
