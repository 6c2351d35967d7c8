// Package reconcile repairs drift between slot status and the bookings that
// hold slots. Slot status is a secondary index of bookings; crashes between a
// claim and the booking insert, or a failed compensation, can leave it wrong.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
)

const batchSize = 500

// SlotStore lists slots and changes the status of those that have been
// left alone long enough.
type SlotStore interface {
	List(ctx context.Context, filter availability.Filter) ([]*availability.Slot, error)
	CompareAndSetStaleStatus(ctx context.Context, id string, from, to availability.Status, updatedBefore time.Time) (bool, error)
}

// HoldingChecker tells whether a holding booking references a slot.
type HoldingChecker interface {
	HasHoldingBooking(ctx context.Context, slotID string) (bool, error)
}

type Result struct {
	Released int
	Reserved int
}

type Reconciler struct {
	slots     SlotStore
	bookings  HoldingChecker
	grace     time.Duration
	batchSize int
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReconciler(slots SlotStore, bookings HoldingChecker, grace time.Duration, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		slots:     slots,
		bookings:  bookings,
		grace:     grace,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run makes one repair pass over every slot untouched for the grace period.
// Slots changed more recently may belong to a reservation still in flight,
// and a slot that changes during the pass is skipped by the guarded update.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	var res Result
	cutoff := r.now().Add(-r.grace)

	released, err := r.repair(ctx, availability.StatusBooked, availability.StatusOpen, false, cutoff)
	res.Released = released
	if err != nil {
		return res, fmt.Errorf("release orphaned slots: %w", err)
	}

	reserved, err := r.repair(ctx, availability.StatusOpen, availability.StatusBooked, true, cutoff)
	res.Reserved = reserved
	if err != nil {
		return res, fmt.Errorf("reserve held slots: %w", err)
	}

	return res, nil
}

// repair walks all slots in status from, page by page, and moves those whose
// holding state equals held to status to.
func (r *Reconciler) repair(ctx context.Context, from, to availability.Status, held bool, cutoff time.Time) (int, error) {
	repaired := 0
	filter := availability.Filter{
		Status:        from,
		UpdatedBefore: &cutoff,
		Limit:         r.batchSize,
	}

	for {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		page, err := r.slots.List(ctx, filter)
		if err != nil {
			return repaired, fmt.Errorf("list %s slots: %w", from, err)
		}

		for _, slot := range page {
			isHeld, err := r.bookings.HasHoldingBooking(ctx, slot.ID)
			if err != nil {
				return repaired, err
			}
			if isHeld != held {
				continue
			}

			ok, err := r.slots.CompareAndSetStaleStatus(ctx, slot.ID, from, to, cutoff)
			if err != nil {
				return repaired, err
			}
			if !ok {
				continue
			}
			repaired++
			r.logger.WithFields(logrus.Fields{
				"slot_id": slot.ID,
				"from":    string(from),
				"to":      string(to),
			}).Warn("repaired slot status")
		}

		if len(page) < r.batchSize {
			return repaired, nil
		}
		cursor := page[len(page)-1].Cursor()
		filter.After = &cursor
	}
}
