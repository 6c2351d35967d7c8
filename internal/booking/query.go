package booking

import (
	"context"
	"time"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

// QueryService answers read-only questions about bookings.
type QueryService interface {
	ListByClient(ctx context.Context, clientID string, status string, page, pageSize int) ([]*Booking, int, error)
	ListByProfessional(ctx context.Context, professionalID string, status string, page, pageSize int) ([]*Booking, int, error)
	ListByDateRange(ctx context.Context, party Party, id string, from, to time.Time) ([]*Booking, error)
	IsSlotBooked(ctx context.Context, slotID string) (bool, error)
}

type queryService struct {
	reader Reader
}

func NewQueryService(reader Reader) QueryService {
	return &queryService{reader: reader}
}

func statusFilter(status string) (Status, error) {
	if status == "" {
		return "", nil
	}
	return ParseStatus(status)
}

func (s *queryService) ListByClient(ctx context.Context, clientID string, status string, page, pageSize int) ([]*Booking, int, error) {
	st, err := statusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	return s.reader.List(ctx, Filter{ClientID: clientID, Status: st, Page: page, PageSize: pageSize})
}

func (s *queryService) ListByProfessional(ctx context.Context, professionalID string, status string, page, pageSize int) ([]*Booking, int, error) {
	st, err := statusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	return s.reader.List(ctx, Filter{ProfessionalID: professionalID, Status: st, Page: page, PageSize: pageSize})
}

func (s *queryService) ListByDateRange(ctx context.Context, party Party, id string, from, to time.Time) ([]*Booking, error) {
	from, to = timeutil.Date(from), timeutil.Date(to)
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	filter := Filter{DateFrom: &from, DateTo: &to}
	switch party {
	case PartyClient:
		filter.ClientID = id
	case PartyProfessional:
		filter.ProfessionalID = id
	default:
		return nil, ErrInvalidInput
	}
	return s.reader.ListByDateRange(ctx, filter)
}

func (s *queryService) IsSlotBooked(ctx context.Context, slotID string) (bool, error) {
	return s.reader.HasHoldingBooking(ctx, slotID)
}
