// Package reservation grants a slot to at most one caller at a time.
// Every claim and release is a single conditional status change on the slot
// record; nothing here reads a status and then writes it.
package reservation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
)

type Coordinator struct {
	store  availability.StatusStore
	logger *logrus.Logger
}

func NewCoordinator(store availability.StatusStore, logger *logrus.Logger) *Coordinator {
	return &Coordinator{store: store, logger: logger}
}

// Reserve moves the slot from open to booked. It reports true only for the
// caller that performed the move.
func (c *Coordinator) Reserve(ctx context.Context, slotID string) (bool, error) {
	ok, err := c.store.CompareAndSetStatus(ctx, slotID, availability.StatusOpen, availability.StatusBooked)
	if err != nil {
		return false, fmt.Errorf("reserve slot %s: %w", slotID, err)
	}
	return ok, nil
}

// Release moves the slot back to open. A slot that is already open is
// reported with false and a warning, not an error.
func (c *Coordinator) Release(ctx context.Context, slotID string) (bool, error) {
	ok, err := c.store.CompareAndSetStatus(ctx, slotID, availability.StatusBooked, availability.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("release slot %s: %w", slotID, err)
	}
	if !ok {
		c.logger.WithField("slot_id", slotID).Warn("release found slot not booked")
	}
	return ok, nil
}
