package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusStore is the conditional single-record update slot reservation
// relies on.
type StatusStore interface {
	// CompareAndSetStatus moves slot id from one status to another and
	// reports whether this call performed the change.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status) (bool, error)
}

type Repository interface {
	StatusStore

	Create(ctx context.Context, slot *Slot) error
	GetByID(ctx context.Context, id string) (*Slot, error)
	// List returns slots ordered by date, start time and id.
	List(ctx context.Context, filter Filter) ([]*Slot, error)
	// CompareAndSetStaleStatus is CompareAndSetStatus restricted to slots
	// whose last change happened before updatedBefore.
	CompareAndSetStaleStatus(ctx context.Context, id string, from, to Status, updatedBefore time.Time) (bool, error)
	// UpdateSchedule rewrites date and times of a slot that is still open.
	UpdateSchedule(ctx context.Context, slot *Slot) error
	// DeleteIfOpen removes the slot only while it is open.
	DeleteIfOpen(ctx context.Context, id string) error
	DeleteOpenOnDate(ctx context.Context, professionalID string, date time.Time) (int64, error)
}

var slotColumns = []string{
	"id", "professional_id", "date", "start_time", "end_time", "status", "created_at", "updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	if err := row.Scan(
		&s.ID, &s.ProfessionalID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *pgxRepository) Create(ctx context.Context, s *Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.availability_slots").
		Columns("professional_id", "date", "start_time", "end_time", "status").
		Values(s.ProfessionalID, s.Date, s.StartTime, s.EndTime, s.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create slot query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrOverlappingSlot
		}
		return fmt.Errorf("create slot failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Slot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns...).
		From("public.availability_slots").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get slot query failed: %w", err)
	}

	s, err := scanSlot(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Slot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(slotColumns...).From("public.availability_slots")

	if filter.ProfessionalID != "" {
		query = query.Where(squirrel.Eq{"professional_id": filter.ProfessionalID})
	}
	if filter.DateFrom != nil {
		query = query.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		query = query.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.UpdatedBefore != nil {
		query = query.Where(squirrel.Lt{"updated_at": *filter.UpdatedBefore})
	}
	if filter.After != nil {
		query = query.Where(squirrel.Expr("(date, start_time, id) > (?, ?, ?)",
			filter.After.Date, filter.After.StartTime, filter.After.ID))
	}

	query = query.OrderBy("date ASC", "start_time ASC", "id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots failed: %w", err)
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot failed: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slots failed: %w", err)
	}

	return slots, nil
}

func (r *pgxRepository) UpdateSchedule(ctx context.Context, s *Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.availability_slots").
		Set("date", s.Date).
		Set("start_time", s.StartTime).
		Set("end_time", s.EndTime).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": s.ID, "status": StatusOpen}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update slot query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainMiss(ctx, s.ID)
		}
		if isUniqueViolation(err) {
			return ErrOverlappingSlot
		}
		return fmt.Errorf("update slot failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) DeleteIfOpen(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.availability_slots").
		Where(squirrel.Eq{"id": id, "status": StatusOpen}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete slot query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.explainMiss(ctx, id)
	}
	return nil
}

// explainMiss runs after a status-guarded statement matched no rows: either
// the slot is gone or it is no longer open.
func (r *pgxRepository) explainMiss(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrSlotBooked
}

func (r *pgxRepository) DeleteOpenOnDate(ctx context.Context, professionalID string, date time.Time) (int64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.availability_slots").
		Where(squirrel.Eq{"professional_id": professionalID, "date": date, "status": StatusOpen}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete slots by date query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete slots by date failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgxRepository) CompareAndSetStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	return r.setStatus(ctx, squirrel.Eq{"id": id, "status": from}, to)
}

func (r *pgxRepository) CompareAndSetStaleStatus(ctx context.Context, id string, from, to Status, updatedBefore time.Time) (bool, error) {
	return r.setStatus(ctx, squirrel.And{
		squirrel.Eq{"id": id, "status": from},
		squirrel.Lt{"updated_at": updatedBefore},
	}, to)
}

func (r *pgxRepository) setStatus(ctx context.Context, where squirrel.Sqlizer, to Status) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.availability_slots").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(where).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build set slot status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set slot status failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
