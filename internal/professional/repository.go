package professional

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository looks up professionals. Profiles are managed elsewhere.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Professional, error)
	GetByUserID(ctx context.Context, userID string) (*Professional, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Professional, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetByUserID(ctx context.Context, userID string) (*Professional, error) {
	return r.getOne(ctx, squirrel.Eq{"user_id": userID})
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Eq) (*Professional, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "user_id").
		From("public.professional_profiles").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get professional query failed: %w", err)
	}

	var p Professional
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get professional failed: %w", err)
	}
	return &p, nil
}

// MemoryRepository is an in-process directory for tests and STORE=memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]Professional
	byUser map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]Professional),
		byUser: make(map[string]string),
	}
}

// Add registers or replaces a professional.
func (r *MemoryRepository) Add(p Professional) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	r.byUser[p.UserID] = p.ID
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetByUserID(_ context.Context, userID string) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	p := r.byID[id]
	return &p, nil
}
