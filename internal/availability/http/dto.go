package http

import (
	"time"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

type CreateSlotRequest struct {
	Date      string              `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime *timeutil.TimeOfDay `json:"start_time" binding:"required"`
	EndTime   *timeutil.TimeOfDay `json:"end_time" binding:"required"`
}

// CreateBulkRequest takes either explicit dates or a from/to range,
// optionally restricted to weekdays (0 = Sunday).
type CreateBulkRequest struct {
	Dates     []string            `json:"dates" binding:"omitempty,dive,datetime=2006-01-02"`
	From      string              `json:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string              `json:"to" binding:"omitempty,datetime=2006-01-02"`
	Weekdays  []int               `json:"weekdays" binding:"omitempty,dive,min=0,max=6"`
	StartTime *timeutil.TimeOfDay `json:"start_time" binding:"required"`
	EndTime   *timeutil.TimeOfDay `json:"end_time" binding:"required"`
}

// ResolveDates expands the request into the dates to publish.
func (r *CreateBulkRequest) ResolveDates() ([]time.Time, error) {
	if len(r.Dates) > 0 {
		dates := make([]time.Time, 0, len(r.Dates))
		for _, s := range r.Dates {
			d, err := timeutil.ParseDate(s)
			if err != nil {
				return nil, availability.ErrInvalidInput
			}
			dates = append(dates, d)
		}
		return dates, nil
	}

	if r.From == "" || r.To == "" {
		return nil, availability.ErrInvalidInput
	}
	from, err := timeutil.ParseDate(r.From)
	if err != nil {
		return nil, availability.ErrInvalidInput
	}
	to, err := timeutil.ParseDate(r.To)
	if err != nil {
		return nil, availability.ErrInvalidInput
	}
	if from.After(to) {
		return nil, availability.ErrInvalidDateRange
	}

	weekdays := make([]time.Weekday, 0, len(r.Weekdays))
	for _, w := range r.Weekdays {
		weekdays = append(weekdays, time.Weekday(w))
	}
	return timeutil.DatesBetween(from, to, weekdays...), nil
}

type UpdateSlotRequest struct {
	Date      *string             `json:"date" binding:"omitempty,datetime=2006-01-02"`
	StartTime *timeutil.TimeOfDay `json:"start_time"`
	EndTime   *timeutil.TimeOfDay `json:"end_time"`
}

type DateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

type DateRangeQuery struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

type SlotResponse struct {
	ID             string             `json:"id"`
	ProfessionalID string             `json:"professional_id"`
	Date           string             `json:"date"`
	StartTime      timeutil.TimeOfDay `json:"start_time"`
	EndTime        timeutil.TimeOfDay `json:"end_time"`
	Status         string             `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func NewSlotResponse(s *availability.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		ProfessionalID: s.ProfessionalID,
		Date:           s.Date.Format(timeutil.DateLayout),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func NewSlotResponses(slots []*availability.Slot) []SlotResponse {
	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}
	return items
}

type BulkResponse struct {
	Created []SlotResponse `json:"created"`
	Skipped []string       `json:"skipped"`
}

func NewBulkResponse(r *availability.BulkResult) BulkResponse {
	skipped := make([]string, len(r.Skipped))
	for i, d := range r.Skipped {
		skipped[i] = d.Format(timeutil.DateLayout)
	}
	return BulkResponse{
		Created: NewSlotResponses(r.Created),
		Skipped: skipped,
	}
}
