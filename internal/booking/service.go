package booking

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/event"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
)

const compensationTimeout = 5 * time.Second

// SlotReader loads slots.
type SlotReader interface {
	GetByID(ctx context.Context, id string) (*availability.Slot, error)
}

// ProfessionalReader loads professionals.
type ProfessionalReader interface {
	GetByID(ctx context.Context, id string) (*professional.Professional, error)
}

// SlotReserver claims and frees slots atomically.
type SlotReserver interface {
	Reserve(ctx context.Context, slotID string) (bool, error)
	Release(ctx context.Context, slotID string) (bool, error)
}

type CreateRequest struct {
	ProfessionalID string
	SlotID         string
	ServiceDetails string
}

// Service runs the booking lifecycle. Every method acts on behalf of actor.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, id string, target string) (*Booking, error)
	Cancel(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	UpdateDetails(ctx context.Context, actor auth.Actor, id string, details string) (*Booking, error)
}

type service struct {
	repo          Repository
	slots         SlotReader
	professionals ProfessionalReader
	reserver      SlotReserver
	publisher     event.Publisher
	logger        *logrus.Logger
	loc           *time.Location
	now           func() time.Time
}

func NewService(
	repo Repository,
	slots SlotReader,
	professionals ProfessionalReader,
	reserver SlotReserver,
	publisher event.Publisher,
	logger *logrus.Logger,
	loc *time.Location,
) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:          repo,
		slots:         slots,
		professionals: professionals,
		reserver:      reserver,
		publisher:     publisher,
		logger:        logger,
		loc:           loc,
		now:           time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (_ *Booking, err error) {
	if utf8.RuneCountInString(req.ServiceDetails) > MaxServiceDetailsLen {
		return nil, ErrInvalidInput
	}

	// 1. Load professional and slot
	pro, err := s.professionals.GetByID(ctx, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, professional.ErrNotFound) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}
	slot, err := s.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, availability.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	// 2. Validate before touching any state
	if slot.ProfessionalID != pro.ID {
		return nil, ErrSlotMismatch
	}
	if pro.UserID == actor.ID {
		return nil, ErrSelfBooking
	}
	if slot.StartsAt(s.loc).Before(s.now()) {
		return nil, ErrPastSlot
	}

	// 3. Claim the slot
	reserved, err := s.reserver.Reserve(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, ErrSlotNotAvailable
	}

	// 4. Any failure from here on gives the slot back. A unique violation
	// means another holding booking already owns it, so it stays booked.
	defer func() {
		if err != nil && !errors.Is(err, ErrSlotNotAvailable) {
			s.releaseAfterFailure(ctx, slot.ID, err)
		}
	}()

	b := &Booking{
		ClientID:       actor.ID,
		ProfessionalID: pro.ID,
		SlotID:         slot.ID,
		ServiceDetails: req.ServiceDetails,
		BookingDate:    slot.Date,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Status:         StatusPending,
	}
	if err = s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.publish(ctx, event.BookingCreated{
		BookingID:      b.ID,
		ClientID:       b.ClientID,
		ProfessionalID: b.ProfessionalID,
		SlotID:         b.SlotID,
		OccurredAt:     b.CreatedAt,
	})

	return b, nil
}

// releaseAfterFailure frees a slot claimed by a booking that was never stored.
// It outlives the request context so a cancelled request still compensates.
func (s *service) releaseAfterFailure(ctx context.Context, slotID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	entry := s.logger.WithFields(logrus.Fields{"slot_id": slotID, "cause": cause.Error()})
	if _, err := s.reserver.Release(ctx, slotID); err != nil {
		entry.WithError(err).Error("failed to release slot after booking failure")
		return
	}
	entry.Info("released slot after booking failure")
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.participantRole(ctx, actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// participantRole reports which side of the booking actor is on.
func (s *service) participantRole(ctx context.Context, actor auth.Actor, b *Booking) (Party, error) {
	if actor.ID == "" {
		return "", ErrUnauthorized
	}
	if b.ClientID == actor.ID {
		return PartyClient, nil
	}

	pro, err := s.professionals.GetByID(ctx, b.ProfessionalID)
	if err != nil {
		if errors.Is(err, professional.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	if pro.UserID == actor.ID {
		return PartyProfessional, nil
	}
	return "", ErrUnauthorized
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, id string, target string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	party, err := s.participantRole(ctx, actor, b)
	if err != nil {
		return nil, err
	}

	to, err := ParseStatus(target)
	if err != nil {
		return nil, err
	}
	from := b.Status
	if !from.CanTransitionTo(to) {
		return nil, ErrInvalidStateTransition
	}
	if to.ProfessionalOnly() && party != PartyProfessional {
		return nil, ErrUnauthorized
	}

	released := false
	if to.ReleasesSlot() && b.SlotID != "" {
		// false means the slot was already open; that must not block the
		// transition.
		if released, err = s.reserver.Release(ctx, b.SlotID); err != nil {
			return nil, err
		}
	}

	b.Status = to
	if err := s.repo.UpdateStatus(ctx, b, from); err != nil {
		if released {
			s.restoreClaim(ctx, b.ID, b.SlotID)
		}
		if errors.Is(err, errStatusConflict) {
			// A concurrent transition won.
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	s.publish(ctx, event.BookingStatusChanged{
		BookingID:  b.ID,
		From:       string(from),
		To:         string(to),
		ActorID:    actor.ID,
		OccurredAt: b.UpdatedAt,
	})

	return b, nil
}

// restoreClaim re-books a slot this call released when the status update
// did not go through, but only if the booking still holds the slot.
func (s *service) restoreClaim(ctx context.Context, bookingID, slotID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	entry := s.logger.WithFields(logrus.Fields{"booking_id": bookingID, "slot_id": slotID})

	current, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		entry.WithError(err).Error("failed to reload booking after status update failure")
		return
	}
	if !current.Status.Holds() {
		return
	}
	if _, err := s.reserver.Reserve(ctx, slotID); err != nil {
		entry.WithError(err).Error("failed to re-reserve slot after status update failure")
		return
	}
	entry.Warn("re-reserved slot after status update failure")
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	return s.UpdateStatus(ctx, actor, id, string(StatusCancelled))
}

func (s *service) UpdateDetails(ctx context.Context, actor auth.Actor, id string, details string) (*Booking, error) {
	if utf8.RuneCountInString(details) > MaxServiceDetailsLen {
		return nil, ErrInvalidInput
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.participantRole(ctx, actor, b); err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, ErrInvalidStateTransition
	}

	b.ServiceDetails = details
	if err := s.repo.UpdateDetails(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) publish(ctx context.Context, e event.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WithError(err).WithField("event", string(e.EventType())).Warn("failed to publish event")
	}
}
