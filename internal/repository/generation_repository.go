package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// GenerationRepository provides persistence for timetable cache generations.
type GenerationRepository struct {
	db *sqlx.DB
}

// NewGenerationRepository creates a new generation repository.
func NewGenerationRepository(db *sqlx.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Create stores a new generation row.
func (r *GenerationRepository) Create(ctx context.Context, gen *models.Generation) error {
	if gen.ID == "" {
		gen.ID = uuid.NewString()
	}
	if gen.FetchedAt.IsZero() {
		gen.FetchedAt = time.Now().UTC()
	}

	const query = `INSERT INTO timetable_generations (id, fetched_at, valid_until) VALUES (:id, :fetched_at, :valid_until)`
	if _, err := r.db.NamedExecContext(ctx, query, gen); err != nil {
		return fmt.Errorf("create generation: %w", err)
	}
	return nil
}

// LatestValid returns the most recently fetched generation whose validity
// window has not lapsed. sql.ErrNoRows is passed through on a cache miss.
func (r *GenerationRepository) LatestValid(ctx context.Context, now time.Time) (*models.Generation, error) {
	const query = `SELECT id, fetched_at, valid_until FROM timetable_generations WHERE valid_until > $1 ORDER BY fetched_at DESC LIMIT 1`
	var gen models.Generation
	if err := r.db.GetContext(ctx, &gen, query, now); err != nil {
		return nil, err
	}
	return &gen, nil
}

// ListExpired returns generations whose validity lapsed, oldest first so
// cleanup removes them in fetch order.
func (r *GenerationRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Generation, error) {
	const query = `SELECT id, fetched_at, valid_until FROM timetable_generations WHERE valid_until <= $1 ORDER BY fetched_at ASC`
	var gens []models.Generation
	if err := r.db.SelectContext(ctx, &gens, query, now); err != nil {
		return nil, fmt.Errorf("list expired generations: %w", err)
	}
	return gens, nil
}

// DeleteCascade removes a generation together with all of its class records
// in one transaction, restoring the all-or-nothing invariant.
func (r *GenerationRepository) DeleteCascade(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete generation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_records WHERE generation_id = $1`, id); err != nil {
		return fmt.Errorf("delete generation records: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_generations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete generation: %w", err)
	}
	return nil
}

// CountRecords returns the number of class records owned by a generation.
func (r *GenerationRepository) CountRecords(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM class_records WHERE generation_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count generation records: %w", err)
	}
	return count, nil
}
