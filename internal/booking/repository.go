package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the write side of bookings.
type Repository interface {
	// Create inserts a pending booking. A second holding booking for the
	// same slot fails with ErrSlotNotAvailable.
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// UpdateStatus stores booking.Status only if the stored status is still from.
	UpdateStatus(ctx context.Context, booking *Booking, from Status) error
	// UpdateDetails rewrites the service details of a non-terminal booking.
	UpdateDetails(ctx context.Context, booking *Booking) error
}

var bookingColumns = []string{
	"id", "client_id", "professional_id", "slot_id", "service_details",
	"booking_date", "start_time", "end_time", "status", "created_at", "updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("client_id", "professional_id", "slot_id", "service_details",
			"booking_date", "start_time", "end_time", "status").
		Values(b.ClientID, b.ProfessionalID, b.SlotID, b.ServiceDetails,
			b.BookingDate, b.StartTime, b.EndTime, b.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlotNotAvailable
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	var slotID *string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.ClientID, &b.ProfessionalID, &slotID, &b.ServiceDetails,
		&b.BookingDate, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	if slotID != nil {
		b.SlotID = *slotID
	}
	return &b, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, b *Booking, from Status) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", b.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID, "status": from}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking status query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errStatusConflict
		}
		return fmt.Errorf("update booking status failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) UpdateDetails(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("service_details", b.ServiceDetails).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID, "status": []Status{StatusPending, StatusConfirmed}}).
		Suffix("RETURNING status, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking details query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.Status, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidStateTransition
		}
		return fmt.Errorf("update booking details failed: %w", err)
	}
	return nil
}
