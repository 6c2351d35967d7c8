package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/apperror"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

var (
	ErrNotFound               = apperror.New(http.StatusNotFound, "booking not found")
	ErrProfessionalNotFound   = apperror.New(http.StatusNotFound, "professional not found")
	ErrSlotNotFound           = apperror.New(http.StatusNotFound, "slot not found")
	ErrSlotNotAvailable       = apperror.New(http.StatusConflict, "slot is not available")
	ErrPastSlot               = apperror.New(http.StatusBadRequest, "cannot book a slot in the past")
	ErrSelfBooking            = apperror.New(http.StatusBadRequest, "cannot book your own slot")
	ErrSlotMismatch           = apperror.New(http.StatusBadRequest, "slot does not belong to the professional")
	ErrInvalidStateTransition = apperror.New(http.StatusConflict, "invalid booking status transition")
	ErrInvalidStatus          = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrUnauthorized           = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidInput           = apperror.New(http.StatusBadRequest, "invalid input parameters")
	ErrInvalidDateRange       = apperror.New(http.StatusBadRequest, "from date must not be after to date")

	// errStatusConflict reports that a status-guarded update lost to a
	// concurrent change. It never leaves the package.
	errStatusConflict = errors.New("booking status changed concurrently")
)

// MaxServiceDetailsLen caps the free-text description, in characters.
const MaxServiceDetailsLen = 1000

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// HoldingStatuses are the statuses in which a booking keeps its slot.
var HoldingStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

// ParseStatus accepts the lower-case wire names.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusRejected:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Holds reports whether a booking in this status occupies its slot.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// ReleasesSlot reports whether entering this status frees the slot.
func (s Status) ReleasesSlot() bool {
	return s == StatusCancelled || s == StatusRejected
}

// ProfessionalOnly reports whether only the professional may move a booking
// into this status.
func (s Status) ProfessionalOnly() bool {
	return s == StatusConfirmed || s == StatusRejected || s == StatusCompleted
}

// Booking is a client's claim on one slot. Date and times are copied from
// the slot when the booking is made so they outlive the slot.
type Booking struct {
	ID             string
	ClientID       string
	ProfessionalID string
	// SlotID is empty once the slot has been deleted.
	SlotID         string
	ServiceDetails string
	BookingDate    time.Time
	StartTime      timeutil.TimeOfDay
	EndTime        timeutil.TimeOfDay
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Party selects which side of a booking a query is about.
type Party string

const (
	PartyClient       Party = "client"
	PartyProfessional Party = "professional"
)

type Filter struct {
	ClientID       string
	ProfessionalID string
	Status         Status
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	PageSize       int
}
