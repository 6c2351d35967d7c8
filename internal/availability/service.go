package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/keylock"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

// CreateSlotRequest carries data to publish one slot.
type CreateSlotRequest struct {
	ProfessionalID string
	Date           time.Time
	StartTime      timeutil.TimeOfDay
	EndTime        timeutil.TimeOfDay
}

// CreateBulkRequest publishes the same time window on several dates.
type CreateBulkRequest struct {
	ProfessionalID string
	Dates          []time.Time
	StartTime      timeutil.TimeOfDay
	EndTime        timeutil.TimeOfDay
}

// BulkResult lists what a bulk creation did per date.
type BulkResult struct {
	Created []*Slot
	Skipped []time.Time
}

// UpdateSlotRequest carries data for partial rescheduling.
type UpdateSlotRequest struct {
	Date      *time.Time
	StartTime *timeutil.TimeOfDay
	EndTime   *timeutil.TimeOfDay
}

type Service interface {
	CreateSlot(ctx context.Context, req CreateSlotRequest) (*Slot, error)
	CreateBulk(ctx context.Context, req CreateBulkRequest) (*BulkResult, error)
	GetByID(ctx context.Context, id string) (*Slot, error)
	ListOpenSlots(ctx context.Context, professionalID string, from, to time.Time) ([]*Slot, error)
	ListSlots(ctx context.Context, professionalID string, date *time.Time) ([]*Slot, error)
	UpdateSlot(ctx context.Context, id string, req UpdateSlotRequest) (*Slot, error)
	DeleteSlot(ctx context.Context, id string) error
	DeleteOpenSlotsOnDate(ctx context.Context, professionalID string, date time.Time) (int64, error)
}

type service struct {
	repo   Repository
	locker keylock.Locker
	logger *logrus.Logger
}

func NewService(repo Repository, locker keylock.Locker, logger *logrus.Logger) Service {
	return &service{repo: repo, locker: locker, logger: logger}
}

func professionalLockKey(professionalID string) string {
	return "slots:professional:" + professionalID
}

func (s *service) CreateSlot(ctx context.Context, req CreateSlotRequest) (*Slot, error) {
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.ProfessionalID == "" {
		return nil, ErrInvalidInput
	}

	unlock, err := s.locker.Lock(ctx, professionalLockKey(req.ProfessionalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.createLocked(ctx, req.ProfessionalID, timeutil.Date(req.Date), req.StartTime, req.EndTime)
}

func (s *service) CreateBulk(ctx context.Context, req CreateBulkRequest) (*BulkResult, error) {
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.ProfessionalID == "" {
		return nil, ErrInvalidInput
	}

	unlock, err := s.locker.Lock(ctx, professionalLockKey(req.ProfessionalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &BulkResult{}
	for _, d := range req.Dates {
		date := timeutil.Date(d)
		slot, err := s.createLocked(ctx, req.ProfessionalID, date, req.StartTime, req.EndTime)
		switch {
		case errors.Is(err, ErrOverlappingSlot):
			result.Skipped = append(result.Skipped, date)
		case err != nil:
			return nil, err
		default:
			result.Created = append(result.Created, slot)
		}
	}

	if len(result.Created) == 0 {
		return nil, ErrNoSlotsCreated
	}

	if len(result.Skipped) > 0 {
		s.logger.WithFields(logrus.Fields{
			"professional_id": req.ProfessionalID,
			"created":         len(result.Created),
			"skipped":         len(result.Skipped),
		}).Info("bulk slot creation skipped overlapping dates")
	}

	return result, nil
}

// createLocked must run while the professional's lock is held.
func (s *service) createLocked(ctx context.Context, professionalID string, date time.Time, start, end timeutil.TimeOfDay) (*Slot, error) {
	if err := s.checkOverlap(ctx, professionalID, date, start, end, ""); err != nil {
		return nil, err
	}

	slot := &Slot{
		ProfessionalID: professionalID,
		Date:           date,
		StartTime:      start,
		EndTime:        end,
		Status:         StatusOpen,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// checkOverlap fails when any slot of the professional on date, open or
// booked, intersects [start, end). excludeID skips the slot being moved.
func (s *service) checkOverlap(ctx context.Context, professionalID string, date time.Time, start, end timeutil.TimeOfDay, excludeID string) error {
	existing, err := s.repo.List(ctx, Filter{
		ProfessionalID: professionalID,
		DateFrom:       &date,
		DateTo:         &date,
	})
	if err != nil {
		return err
	}

	for _, e := range existing {
		if e.ID == excludeID {
			continue
		}
		if rangesOverlap(start, end, e.StartTime, e.EndTime) {
			return ErrOverlappingSlot
		}
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Slot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListOpenSlots(ctx context.Context, professionalID string, from, to time.Time) ([]*Slot, error) {
	from, to = timeutil.Date(from), timeutil.Date(to)
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	return s.repo.List(ctx, Filter{
		ProfessionalID: professionalID,
		DateFrom:       &from,
		DateTo:         &to,
		Status:         StatusOpen,
	})
}

func (s *service) ListSlots(ctx context.Context, professionalID string, date *time.Time) ([]*Slot, error) {
	filter := Filter{ProfessionalID: professionalID}
	if date != nil {
		d := timeutil.Date(*date)
		filter.DateFrom = &d
		filter.DateTo = &d
	}
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateSlot(ctx context.Context, id string, req UpdateSlotRequest) (*Slot, error) {
	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, professionalLockKey(slot.ProfessionalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; the slot may have been reserved or moved meanwhile.
	slot, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.Status != StatusOpen {
		return nil, ErrSlotBooked
	}

	if req.Date != nil {
		slot.Date = timeutil.Date(*req.Date)
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}

	if err := validateWindow(slot.StartTime, slot.EndTime); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, slot.ProfessionalID, slot.Date, slot.StartTime, slot.EndTime, slot.ID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSchedule(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *service) DeleteSlot(ctx context.Context, id string) error {
	return s.repo.DeleteIfOpen(ctx, id)
}

func (s *service) DeleteOpenSlotsOnDate(ctx context.Context, professionalID string, date time.Time) (int64, error) {
	n, err := s.repo.DeleteOpenOnDate(ctx, professionalID, timeutil.Date(date))
	if err != nil {
		return 0, fmt.Errorf("delete open slots on %s: %w", date.Format(timeutil.DateLayout), err)
	}
	return n, nil
}

func validateWindow(start, end timeutil.TimeOfDay) error {
	if !start.Valid() || !end.Valid() || !start.Before(end) {
		return ErrInvalidTimeRange
	}
	return nil
}
