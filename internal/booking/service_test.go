package booking

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/event"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/keylock"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/reservation"
)

const (
	proID     = "pro-1"
	proUserID = "user-pro-1"
	otherPro  = "pro-2"
)

var (
	clientA  = auth.Actor{ID: "client-a", Role: auth.RoleClient}
	clientB  = auth.Actor{ID: "client-b", Role: auth.RoleClient}
	stranger = auth.Actor{ID: "stranger", Role: auth.RoleClient}
	proActor = auth.Actor{ID: proUserID, Role: auth.RoleProfessional}

	fixedNow = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc       Service
	queries   QueryService
	bookings  *MemoryRepository
	slots     *availability.MemoryRepository
	slotSvc   availability.Service
	publisher *event.Recorder
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRepo(t, nil)
}

// newFixtureWithRepo lets a test wrap the booking repository.
func newFixtureWithRepo(t *testing.T, wrap func(*MemoryRepository) Repository) *fixture {
	t.Helper()
	logger := newLogger()

	pros := professional.NewMemoryRepository()
	pros.Add(professional.Professional{ID: proID, UserID: proUserID})
	pros.Add(professional.Professional{ID: otherPro, UserID: "user-pro-2"})

	slots := availability.NewMemoryRepository()
	bookings := NewMemoryRepository()
	slots.OnDelete(bookings.DetachSlot)

	var repo Repository = bookings
	if wrap != nil {
		repo = wrap(bookings)
	}

	publisher := &event.Recorder{}
	svc := NewService(repo, slots, pros, reservation.NewCoordinator(slots, logger), publisher, logger, time.UTC)
	svc.(*service).now = func() time.Time { return fixedNow }

	return &fixture{
		svc:       svc,
		queries:   NewQueryService(bookings),
		bookings:  bookings,
		slots:     slots,
		slotSvc:   availability.NewService(slots, keylock.NewLocal(), logger),
		publisher: publisher,
	}
}

func (f *fixture) createSlot(t *testing.T, day, start, end string) *availability.Slot {
	t.Helper()
	slot, err := f.slotSvc.CreateSlot(context.Background(), availability.CreateSlotRequest{
		ProfessionalID: proID,
		Date:           timeutil.MustParseDate(day),
		StartTime:      timeutil.MustParseTimeOfDay(start),
		EndTime:        timeutil.MustParseTimeOfDay(end),
	})
	require.NoError(t, err)
	return slot
}

func (f *fixture) slotStatus(t *testing.T, id string) availability.Status {
	t.Helper()
	slot, err := f.slots.GetByID(context.Background(), id)
	require.NoError(t, err)
	return slot.Status
}

func (f *fixture) book(actor auth.Actor, slotID string) (*Booking, error) {
	return f.svc.Create(context.Background(), actor, CreateRequest{
		ProfessionalID: proID,
		SlotID:         slotID,
		ServiceDetails: "fix the sink",
	})
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")

	b, err := f.book(clientA, slot.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, clientA.ID, b.ClientID)
	assert.Equal(t, slot.Date, b.BookingDate)
	assert.Equal(t, slot.StartTime, b.StartTime)
	assert.Equal(t, slot.EndTime, b.EndTime)
	assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))

	events := f.publisher.Events()
	require.Len(t, events, 1)
	created, ok := events[0].(event.BookingCreated)
	require.True(t, ok)
	assert.Equal(t, b.ID, created.BookingID)
	assert.Equal(t, slot.ID, created.SlotID)
}

func TestCreate_ValidationLeavesSlotOpen(t *testing.T) {
	f := newFixture(t)
	future := f.createSlot(t, "2025-01-10", "10:00", "11:00")
	past := f.createSlot(t, "2025-01-09", "09:00", "10:00")

	tests := []struct {
		name   string
		actor  auth.Actor
		req    CreateRequest
		slotID string
		want   error
	}{
		{
			name:   "past slot",
			actor:  clientA,
			req:    CreateRequest{ProfessionalID: proID, SlotID: past.ID},
			slotID: past.ID,
			want:   ErrPastSlot,
		},
		{
			name:   "self booking",
			actor:  proActor,
			req:    CreateRequest{ProfessionalID: proID, SlotID: future.ID},
			slotID: future.ID,
			want:   ErrSelfBooking,
		},
		{
			name:   "slot of another professional",
			actor:  clientA,
			req:    CreateRequest{ProfessionalID: otherPro, SlotID: future.ID},
			slotID: future.ID,
			want:   ErrSlotMismatch,
		},
		{
			name:   "details too long",
			actor:  clientA,
			req:    CreateRequest{ProfessionalID: proID, SlotID: future.ID, ServiceDetails: strings.Repeat("x", MaxServiceDetailsLen+1)},
			slotID: future.ID,
			want:   ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, availability.StatusOpen, f.slotStatus(t, tt.slotID))
		})
	}

	t.Run("missing professional", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), clientA, CreateRequest{ProfessionalID: "nope", SlotID: future.ID})
		assert.ErrorIs(t, err, ErrProfessionalNotFound)
	})

	t.Run("missing slot", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), clientA, CreateRequest{ProfessionalID: proID, SlotID: "nope"})
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	assert.Empty(t, f.publisher.Events())
}

func TestCreate_ConcurrentClientsOneWinner(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")

	const clients = 30
	var (
		wg          sync.WaitGroup
		successes   int32
		unavailable int32
		start       = make(chan struct{})
	)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			actor := auth.Actor{ID: "client-" + string(rune('a'+i)), Role: auth.RoleClient}
			_, err := f.book(actor, slot.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ErrSlotNotAvailable):
				atomic.AddInt32(&unavailable, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(clients-1), unavailable)

	held, err := f.queries.IsSlotBooked(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.True(t, held)
}

// failingCreateRepo fails every insert after the slot has been claimed.
type failingCreateRepo struct {
	*MemoryRepository
	err error
}

func (r failingCreateRepo) Create(context.Context, *Booking) error { return r.err }

func TestCreate_CompensatesOnPersistFailure(t *testing.T) {
	f := newFixtureWithRepo(t, func(m *MemoryRepository) Repository {
		return failingCreateRepo{MemoryRepository: m, err: errors.New("disk full")}
	})
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")

	_, err := f.book(clientA, slot.ID)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, availability.StatusOpen, f.slotStatus(t, slot.ID))
	assert.Empty(t, f.publisher.Events())
}

func TestCreate_HoldingBookingKeepsSlotBooked(t *testing.T) {
	f := newFixtureWithRepo(t, func(m *MemoryRepository) Repository {
		return failingCreateRepo{MemoryRepository: m, err: ErrSlotNotAvailable}
	})
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")

	_, err := f.book(clientA, slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))
}

func TestLifecycle_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")

	first, err := f.book(clientA, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))

	_, err = f.book(clientB, slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)

	confirmed, err := f.svc.UpdateStatus(ctx, proActor, first.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))

	cancelled, err := f.svc.Cancel(ctx, clientA, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, availability.StatusOpen, f.slotStatus(t, slot.ID))

	second, err := f.book(clientB, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, second.Status)
	assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))

	var changes []event.BookingStatusChanged
	for _, e := range f.publisher.Events() {
		if c, ok := e.(event.BookingStatusChanged); ok {
			changes = append(changes, c)
		}
	}
	require.Len(t, changes, 2)
	assert.Equal(t, "pending", changes[0].From)
	assert.Equal(t, "confirmed", changes[0].To)
	assert.Equal(t, "cancelled", changes[1].To)
	assert.Equal(t, clientA.ID, changes[1].ActorID)
}

func TestUpdateStatus_Rules(t *testing.T) {
	ctx := context.Background()

	t.Run("client cannot confirm", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.book(clientA, f.createSlot(t, "2025-01-10", "10:00", "11:00").ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, clientA, b.ID, "confirmed")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("stranger cannot touch", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.book(clientA, f.createSlot(t, "2025-01-10", "10:00", "11:00").ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, stranger, b.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = f.svc.GetByID(ctx, stranger, b.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.book(clientA, f.createSlot(t, "2025-01-10", "10:00", "11:00").ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, proActor, b.ID, "archived")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("missing booking", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateStatus(ctx, proActor, "nope", "confirmed")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.book(clientA, f.createSlot(t, "2025-01-10", "10:00", "11:00").ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, proActor, b.ID, "completed")
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("reject releases slot", func(t *testing.T) {
		f := newFixture(t)
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		got, err := f.svc.UpdateStatus(ctx, proActor, b.ID, "rejected")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, got.Status)
		assert.Equal(t, availability.StatusOpen, f.slotStatus(t, slot.ID))
	})

	t.Run("complete keeps slot booked", func(t *testing.T) {
		f := newFixture(t)
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, proActor, b.ID, "confirmed")
		require.NoError(t, err)
		got, err := f.svc.UpdateStatus(ctx, proActor, b.ID, "completed")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))

		_, err = f.svc.Cancel(ctx, clientA, b.ID)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("cancel twice", func(t *testing.T) {
		f := newFixture(t)
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, clientA, b.ID)
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, clientA, b.ID)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, availability.StatusOpen, f.slotStatus(t, slot.ID))
	})

	t.Run("cancel with slot already open", func(t *testing.T) {
		f := newFixture(t)
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		ok, err := f.slots.CompareAndSetStatus(ctx, slot.ID, availability.StatusBooked, availability.StatusOpen)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := f.svc.Cancel(ctx, proActor, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("cancel after slot deleted", func(t *testing.T) {
		f := newFixture(t)
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		_, err = f.slots.CompareAndSetStatus(ctx, slot.ID, availability.StatusBooked, availability.StatusOpen)
		require.NoError(t, err)
		require.NoError(t, f.slotSvc.DeleteSlot(ctx, slot.ID))

		got, err := f.svc.Cancel(ctx, clientA, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		assert.Empty(t, got.SlotID)
		assert.Equal(t, timeutil.MustParseDate("2025-01-10"), got.BookingDate)
	})
}

// racingRepo lets a competing transition land between the service's read
// and its conditional write.
type racingRepo struct {
	*MemoryRepository
	competing Status
}

func (r racingRepo) UpdateStatus(ctx context.Context, b *Booking, from Status) error {
	winner := *b
	winner.Status = r.competing
	if err := r.MemoryRepository.UpdateStatus(ctx, &winner, from); err != nil {
		return err
	}
	return r.MemoryRepository.UpdateStatus(ctx, b, from)
}

func TestUpdateStatus_LosingRaceRestoresClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent confirm wins over cancel", func(t *testing.T) {
		f := newFixtureWithRepo(t, func(m *MemoryRepository) Repository {
			return racingRepo{MemoryRepository: m, competing: StatusConfirmed}
		})
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, clientA, b.ID)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)

		stored, err := f.bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, stored.Status)
		assert.Equal(t, availability.StatusBooked, f.slotStatus(t, slot.ID))
	})

	t.Run("concurrent cancel wins over cancel", func(t *testing.T) {
		f := newFixtureWithRepo(t, func(m *MemoryRepository) Repository {
			return racingRepo{MemoryRepository: m, competing: StatusCancelled}
		})
		slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
		b, err := f.book(clientA, slot.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, proActor, b.ID)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, availability.StatusOpen, f.slotStatus(t, slot.ID))
	})
}

func TestUpdateStatus_ConcurrentCancelsOneWinner(t *testing.T) {
	f := newFixture(t)
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")
	b, err := f.book(clientA, slot.ID)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes int32
		start     = make(chan struct{})
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(actor auth.Actor) {
			defer wg.Done()
			<-start
			if _, err := f.svc.Cancel(context.Background(), actor, b.ID); err == nil {
				atomic.AddInt32(&successes, 1)
			} else {
				assert.ErrorIs(t, err, ErrInvalidStateTransition)
			}
		}([]auth.Actor{clientA, proActor}[i%2])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, availability.StatusOpen, f.slotStatus(t, slot.ID))
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.book(clientA, f.createSlot(t, "2025-01-10", "10:00", "11:00").ID)
	require.NoError(t, err)

	got, err := f.svc.UpdateDetails(ctx, proActor, b.ID, "bring a ladder")
	require.NoError(t, err)
	assert.Equal(t, "bring a ladder", got.ServiceDetails)

	_, err = f.svc.UpdateDetails(ctx, clientA, b.ID, strings.Repeat("x", MaxServiceDetailsLen+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateDetails(ctx, stranger, b.ID, "hi")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Cancel(ctx, clientA, b.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateDetails(ctx, clientA, b.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, event.Event) error {
	return errors.New("broker down")
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.svc.(*service).publisher = failingPublisher{}
	slot := f.createSlot(t, "2025-01-10", "10:00", "11:00")

	b, err := f.book(clientA, slot.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), clientA, b.ID)
	require.NoError(t, err)
}
