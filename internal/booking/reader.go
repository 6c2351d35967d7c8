package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
)

// Reader is the read side of bookings. It may be served from a replica and
// must not be used to make lifecycle decisions.
type Reader interface {
	// List returns bookings newest first with the total before paging.
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// ListByDateRange returns bookings ordered by date then start time.
	ListByDateRange(ctx context.Context, filter Filter) ([]*Booking, error)
	HasHoldingBooking(ctx context.Context, slotID string) (bool, error)
}

type bookingRow struct {
	ID             string             `db:"id"`
	ClientID       string             `db:"client_id"`
	ProfessionalID string             `db:"professional_id"`
	SlotID         sql.NullString     `db:"slot_id"`
	ServiceDetails string             `db:"service_details"`
	BookingDate    time.Time          `db:"booking_date"`
	StartTime      timeutil.TimeOfDay `db:"start_time"`
	EndTime        timeutil.TimeOfDay `db:"end_time"`
	Status         Status             `db:"status"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
	TotalCount     int                `db:"total_count"`
}

func (r bookingRow) toBooking() *Booking {
	return &Booking{
		ID:             r.ID,
		ClientID:       r.ClientID,
		ProfessionalID: r.ProfessionalID,
		SlotID:         r.SlotID.String,
		ServiceDetails: r.ServiceDetails,
		BookingDate:    r.BookingDate,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type sqlxReader struct {
	db *sqlx.DB
}

func NewSqlxReader(db *sqlx.DB) Reader {
	return &sqlxReader{db: db}
}

func applyFilter(q squirrel.SelectBuilder, filter Filter) squirrel.SelectBuilder {
	if filter.ClientID != "" {
		q = q.Where(squirrel.Eq{"client_id": filter.ClientID})
	}
	if filter.ProfessionalID != "" {
		q = q.Where(squirrel.Eq{"professional_id": filter.ProfessionalID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"booking_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"booking_date": *filter.DateTo})
	}
	return q
}

func (r *sqlxReader) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(append([]string{}, bookingColumns...), "count(*) OVER() AS total_count")...).
		From("public.bookings")
	query = applyFilter(query, filter)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("created_at DESC", "id").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}

	// A page past the end has no row to carry the window count.
	if len(rows) == 0 && offset > 0 {
		total, err := r.count(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
		return []*Booking{}, total, nil
	}

	total := 0
	bookings := make([]*Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toBooking()
		total = row.TotalCount
	}
	return bookings, total, nil
}

func (r *sqlxReader) count(ctx context.Context, filter Filter) (int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	stmt, args, err := applyFilter(psql.Select("count(*)").From("public.bookings"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count bookings query failed: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, stmt, args...); err != nil {
		return 0, fmt.Errorf("count bookings failed: %w", err)
	}
	return total, nil
}

func (r *sqlxReader) ListByDateRange(ctx context.Context, filter Filter) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(bookingColumns...).From("public.bookings")
	query = applyFilter(query, filter).OrderBy("booking_date ASC", "start_time ASC")

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings by date query failed: %w", err)
	}

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("list bookings by date failed: %w", err)
	}

	bookings := make([]*Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toBooking()
	}
	return bookings, nil
}

func (r *sqlxReader) HasHoldingBooking(ctx context.Context, slotID string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	stmt, args, err := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("public.bookings").
		Where(squirrel.Eq{"slot_id": slotID, "status": HoldingStatuses}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build holding booking query failed: %w", err)
	}

	var held bool
	if err := r.db.GetContext(ctx, &held, stmt, args...); err != nil {
		return false, fmt.Errorf("check holding booking failed: %w", err)
	}
	return held, nil
}
