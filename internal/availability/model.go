package availability

import (
	"net/http"
	"time"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/apperror"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "slot not found")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrInvalidDateRange = apperror.New(http.StatusBadRequest, "from date must not be after to date")
	ErrOverlappingSlot  = apperror.New(http.StatusConflict, "slot overlaps an existing slot")
	ErrSlotBooked       = apperror.New(http.StatusConflict, "slot is booked")
	ErrNoSlotsCreated   = apperror.New(http.StatusConflict, "no slots created")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidInput     = apperror.New(http.StatusBadRequest, "invalid input parameters")
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusBooked Status = "booked"
)

// Slot is a bookable window of one professional's time on one calendar day.
type Slot struct {
	ID             string
	ProfessionalID string
	Date           time.Time
	StartTime      timeutil.TimeOfDay
	EndTime        timeutil.TimeOfDay
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StartsAt is the instant the slot begins in loc.
func (s *Slot) StartsAt(loc *time.Location) time.Time {
	return timeutil.Combine(s.Date, s.StartTime, loc)
}

// Overlaps reports whether two slots of the same professional and day share
// any time. Ranges are half-open, so back-to-back slots do not overlap.
func Overlaps(a, b *Slot) bool {
	if a.ProfessionalID != b.ProfessionalID || !a.Date.Equal(b.Date) {
		return false
	}
	return rangesOverlap(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
}

func rangesOverlap(aStart, aEnd, bStart, bEnd timeutil.TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// Cursor is a position in the (date, start time, id) listing order.
type Cursor struct {
	Date      time.Time
	StartTime timeutil.TimeOfDay
	ID        string
}

// Cursor returns the listing position of s.
func (s *Slot) Cursor() Cursor {
	return Cursor{Date: s.Date, StartTime: s.StartTime, ID: s.ID}
}

// less orders slots by date, start time, then id.
func (c Cursor) less(o Cursor) bool {
	if !c.Date.Equal(o.Date) {
		return c.Date.Before(o.Date)
	}
	if c.StartTime != o.StartTime {
		return c.StartTime < o.StartTime
	}
	return c.ID < o.ID
}

// Filter narrows slot listings. Zero values mean "any".
type Filter struct {
	ProfessionalID string
	DateFrom       *time.Time
	DateTo         *time.Time
	Status         Status
	UpdatedBefore  *time.Time
	// After skips slots up to and including this position.
	After *Cursor
	Limit int
}
