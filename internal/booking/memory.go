package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository implements both Repository and Reader in process memory.
// It enforces the one-holding-booking-per-slot rule like the SQL index does.
type MemoryRepository struct {
	mu       sync.Mutex
	bookings map[string]Booking
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings: make(map[string]Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Status.Holds() {
		for _, existing := range r.bookings {
			if existing.SlotID != "" && existing.SlotID == b.SlotID && existing.Status.Holds() {
				return ErrSlotNotAvailable
			}
		}
	}

	now := r.now()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.bookings[b.ID] = *b
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, b *Booking, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return errStatusConflict
	}
	stored.Status = b.Status
	stored.UpdatedAt = r.now()
	r.bookings[b.ID] = stored
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

// DetachSlot clears the slot reference of every booking on slotID, as the
// bookings.slot_id foreign key does when a slot row is deleted.
func (r *MemoryRepository) DetachSlot(slotID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, b := range r.bookings {
		if b.SlotID == slotID {
			b.SlotID = ""
			r.bookings[id] = b
		}
	}
}

func (r *MemoryRepository) UpdateDetails(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status.IsTerminal() {
		return ErrInvalidStateTransition
	}
	stored.ServiceDetails = b.ServiceDetails
	stored.UpdatedAt = r.now()
	r.bookings[b.ID] = stored
	b.Status = stored.Status
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryRepository) matching(filter Filter) []*Booking {
	var out []*Booking
	for _, b := range r.bookings {
		if filter.ClientID != "" && b.ClientID != filter.ClientID {
			continue
		}
		if filter.ProfessionalID != "" && b.ProfessionalID != filter.ProfessionalID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && b.BookingDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && b.BookingDate.After(*filter.DateTo) {
			continue
		}
		booking := b
		out = append(out, &booking)
	}
	return out
}

func (r *MemoryRepository) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.matching(filter)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	total := len(out)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*Booking{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *MemoryRepository) ListByDateRange(_ context.Context, filter Filter) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.matching(filter)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate) {
			return out[i].BookingDate.Before(out[j].BookingDate)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *MemoryRepository) HasHoldingBooking(_ context.Context, slotID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.SlotID == slotID && b.Status.Holds() {
			return true, nil
		}
	}
	return false, nil
}
