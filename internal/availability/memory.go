package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps slots in process memory. Every method runs under one
// mutex, which gives CompareAndSetStatus the same atomicity as the SQL form.
type MemoryRepository struct {
	mu       sync.Mutex
	slots    map[string]Slot
	now      func() time.Time
	onDelete func(slotID string)
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		slots: make(map[string]Slot),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// OnDelete registers fn to run for every deleted slot, the way a foreign key
// with ON DELETE SET NULL detaches the bookings that referenced it.
func (r *MemoryRepository) OnDelete(fn func(slotID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete = fn
}

func (r *MemoryRepository) deleted(id string) {
	delete(r.slots, id)
	if r.onDelete != nil {
		r.onDelete(id)
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.slots {
		if existing.ProfessionalID == s.ProfessionalID &&
			existing.Date.Equal(s.Date) && existing.StartTime == s.StartTime {
			return ErrOverlappingSlot
		}
	}

	now := r.now()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.slots[s.ID] = *s
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) List(_ context.Context, filter Filter) ([]*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Slot
	for _, s := range r.slots {
		if filter.ProfessionalID != "" && s.ProfessionalID != filter.ProfessionalID {
			continue
		}
		if filter.DateFrom != nil && s.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && s.Date.After(*filter.DateTo) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.UpdatedBefore != nil && !s.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		if filter.After != nil && !filter.After.less(s.Cursor()) {
			continue
		}
		slot := s
		out = append(out, &slot)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Cursor().less(out[j].Cursor())
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) UpdateSchedule(_ context.Context, s *Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.slots[s.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Status != StatusOpen {
		return ErrSlotBooked
	}

	existing.Date = s.Date
	existing.StartTime = s.StartTime
	existing.EndTime = s.EndTime
	existing.UpdatedAt = r.now()
	r.slots[s.ID] = existing
	s.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *MemoryRepository) DeleteIfOpen(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusOpen {
		return ErrSlotBooked
	}
	r.deleted(id)
	return nil
}

func (r *MemoryRepository) DeleteOpenOnDate(_ context.Context, professionalID string, date time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.slots {
		if s.ProfessionalID == professionalID && s.Date.Equal(date) && s.Status == StatusOpen {
			r.deleted(id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CompareAndSetStatus(_ context.Context, id string, from, to Status) (bool, error) {
	return r.setStatus(id, from, to, nil)
}

func (r *MemoryRepository) CompareAndSetStaleStatus(_ context.Context, id string, from, to Status, updatedBefore time.Time) (bool, error) {
	return r.setStatus(id, from, to, &updatedBefore)
}

func (r *MemoryRepository) setStatus(id string, from, to Status, updatedBefore *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || s.Status != from {
		return false, nil
	}
	if updatedBefore != nil && !s.UpdatedAt.Before(*updatedBefore) {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = r.now()
	r.slots[id] = s
	return true, nil
}

// SetUpdatedAt backdates a slot; used to drive time-based jobs in tests.
func (r *MemoryRepository) SetUpdatedAt(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		s.UpdatedAt = t
		r.slots[id] = s
	}
}
