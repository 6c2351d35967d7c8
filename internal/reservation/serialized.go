package reservation

import (
	"context"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/keylock"
)

// SlotStateStore is a store that can only read and overwrite a slot's status.
type SlotStateStore interface {
	GetStatus(ctx context.Context, slotID string) (availability.Status, error)
	SetStatus(ctx context.Context, slotID string, status availability.Status) error
}

// SerializedStore turns a SlotStateStore into an availability.StatusStore by
// holding a per-slot lock around the read and the write. It is only as strong
// as the locker: use a distributed one when several replicas share the store.
type SerializedStore struct {
	store  SlotStateStore
	locker keylock.Locker
}

func NewSerializedStore(store SlotStateStore, locker keylock.Locker) *SerializedStore {
	return &SerializedStore{store: store, locker: locker}
}

func (s *SerializedStore) CompareAndSetStatus(ctx context.Context, id string, from, to availability.Status) (bool, error) {
	unlock, err := s.locker.Lock(ctx, "slot:"+id)
	if err != nil {
		return false, err
	}
	defer unlock()

	current, err := s.store.GetStatus(ctx, id)
	if err != nil {
		return false, err
	}
	if current != from {
		return false, nil
	}
	if err := s.store.SetStatus(ctx, id, to); err != nil {
		return false, err
	}
	return true, nil
}
