package roomstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"hotelengine/internal/domain"
	"hotelengine/internal/pkg/apperr"
	"hotelengine/internal/pkg/clock"
	"hotelengine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []Change
}

func (p *recordingPublisher) Publish(c Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func setup(t *testing.T) (*Guard, *recordingPublisher, *testutil.Hotel, domain.Room) {
	t.Helper()
	db := testutil.OpenDB(t)
	hotel := testutil.NewHotel(t, db)
	room := hotel.Room(t, "101", hotel.RoomType(t, domain.RoomType{}))
	pub := &recordingPublisher{}
	clk := &clock.Fixed{T: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	return NewGuard(clk, pub, nil), pub, hotel, room
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(domain.RoomAvailable, domain.RoomOccupied))
	assert.True(t, CanTransition(domain.RoomOccupied, domain.RoomCleaning))
	assert.True(t, CanTransition(domain.RoomMaintenance, domain.RoomAvailable))
	assert.False(t, CanTransition(domain.RoomOccupied, domain.RoomAvailable))
	assert.False(t, CanTransition(domain.RoomMaintenance, domain.RoomOccupied))
	assert.False(t, CanTransition(domain.RoomBooked, domain.RoomCleaning))
}

func TestApply(t *testing.T) {
	guard, _, hotel, room := setup(t)
	ctx := context.Background()

	var change *Change
	err := hotel.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = guard.Apply(ctx, tx, room.ID, domain.RoomOccupied, Options{Reason: "check-in"})
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, domain.RoomAvailable, change.From)
	assert.Equal(t, domain.RoomOccupied, change.To)
	assert.Equal(t, domain.RoomOccupied, hotel.RoomStatus(t, room.ID))

	t.Run("same status is a no-op", func(t *testing.T) {
		change, err := guard.Apply(ctx, hotel.DB, room.ID, domain.RoomOccupied, Options{})
		require.NoError(t, err)
		assert.Nil(t, change)
	})

	t.Run("illegal transition", func(t *testing.T) {
		_, err := guard.Apply(ctx, hotel.DB, room.ID, domain.RoomAvailable, Options{})
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.ErrorIs(t, err, apperr.InvalidState)
		assert.Equal(t, domain.RoomOccupied, hotel.RoomStatus(t, room.ID))
	})

	t.Run("force overrides the table", func(t *testing.T) {
		change, err := guard.Apply(ctx, hotel.DB, room.ID, domain.RoomAvailable, Options{Force: true})
		require.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, domain.RoomAvailable, hotel.RoomStatus(t, room.ID))
	})

	t.Run("only-from filter", func(t *testing.T) {
		change, err := guard.Apply(ctx, hotel.DB, room.ID, domain.RoomCleaning, Options{OnlyFrom: []domain.RoomStatus{domain.RoomMaintenance}})
		require.NoError(t, err)
		assert.Nil(t, change)
		assert.Equal(t, domain.RoomAvailable, hotel.RoomStatus(t, room.ID))
	})

	t.Run("unknown room and status", func(t *testing.T) {
		_, err := guard.Apply(ctx, hotel.DB, 9999, domain.RoomCleaning, Options{})
		assert.ErrorIs(t, err, ErrRoomNotFound)

		_, err = guard.Apply(ctx, hotel.DB, room.ID, domain.RoomStatus("haunted"), Options{})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestRollbackDoesNotPublish(t *testing.T) {
	guard, pub, hotel, room := setup(t)
	ctx := context.Background()

	var changes []*Change
	err := hotel.DB.Transaction(func(tx *gorm.DB) error {
		c, err := guard.Apply(ctx, tx, room.ID, domain.RoomMaintenance, Options{})
		if err != nil {
			return err
		}
		changes = append(changes, c)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, domain.RoomAvailable, hotel.RoomStatus(t, room.ID))
	assert.Empty(t, pub.changes)
}

func TestMarkClean(t *testing.T) {
	guard, pub, hotel, room := setup(t)
	ctx := context.Background()

	hotel.SetRoomStatus(t, room.ID, domain.RoomMaintenance)
	change, err := guard.MarkClean(ctx, hotel.DB, room.ID)
	require.NoError(t, err)
	assert.Nil(t, change, "maintenance rooms are not released by housekeeping")

	hotel.SetRoomStatus(t, room.ID, domain.RoomCleaning)
	change, err = guard.MarkClean(ctx, hotel.DB, room.ID)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, domain.RoomAvailable, hotel.RoomStatus(t, room.ID))
	require.Len(t, pub.changes, 1)
	assert.Equal(t, room.ID, pub.changes[0].RoomID)
}
