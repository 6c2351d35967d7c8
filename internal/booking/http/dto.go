package http

import (
	"time"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/request"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

type CreateBookingRequest struct {
	ProfessionalID string `json:"professional_id" binding:"required,uuid"`
	SlotID         string `json:"slot_id" binding:"required,uuid"`
	ServiceDetails string `json:"service_details" binding:"max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdateDetailsRequest struct {
	ServiceDetails string `json:"service_details" binding:"max=1000"`
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed rejected"`
}

type DateRangeRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
	As   string `form:"as" binding:"omitempty,oneof=client professional"`
}

type BookingResponse struct {
	ID             string             `json:"id"`
	ClientID       string             `json:"client_id"`
	ProfessionalID string             `json:"professional_id"`
	SlotID         string             `json:"slot_id"`
	ServiceDetails string             `json:"service_details"`
	BookingDate    string             `json:"booking_date"`
	StartTime      timeutil.TimeOfDay `json:"start_time"`
	EndTime        timeutil.TimeOfDay `json:"end_time"`
	Status         string             `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		ClientID:       b.ClientID,
		ProfessionalID: b.ProfessionalID,
		SlotID:         b.SlotID,
		ServiceDetails: b.ServiceDetails,
		BookingDate:    b.BookingDate.Format(timeutil.DateLayout),
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func NewBookingResponses(bookings []*booking.Booking) []BookingResponse {
	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	return items
}
