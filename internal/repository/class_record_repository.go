package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

const classRecordColumns = `id, generation_id, intake_code, module_code, module_name, room_number, room_key, grouping, start_time, end_time, day`

// ClassRecordRepository provides persistence for class records. Reads are
// always scoped to one generation id.
type ClassRecordRepository struct {
	db           *sqlx.DB
	chunkTimeout time.Duration
}

// NewClassRecordRepository creates a new class record repository. The chunk
// timeout bounds each bulk-insert transaction.
func NewClassRecordRepository(db *sqlx.DB, chunkTimeout time.Duration) *ClassRecordRepository {
	if chunkTimeout <= 0 {
		chunkTimeout = 30 * time.Second
	}
	return &ClassRecordRepository{db: db, chunkTimeout: chunkTimeout}
}

// InsertChunk writes one chunk of records inside its own bounded
// transaction. A failure rolls back the whole chunk.
func (r *ClassRecordRepository) InsertChunk(ctx context.Context, records []models.ClassRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.chunkTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert chunk: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO class_records (` + classRecordColumns + `) VALUES (:id, :generation_id, :intake_code, :module_code, :module_name, :room_number, :room_key, :grouping, :start_time, :end_time, :day)`
	for i := range records {
		payload := records[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if _, err = tx.NamedExecContext(ctx, query, &payload); err != nil {
			return fmt.Errorf("insert class record: %w", err)
		}
		records[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit insert chunk: %w", err)
	}
	return nil
}

// ListByIntakeAndRange returns a generation's records for an intake whose
// start time falls within the inclusive window, ordered by start time.
func (r *ClassRecordRepository) ListByIntakeAndRange(ctx context.Context, generationID, intakeCode string, from, to time.Time) ([]models.ClassRecord, error) {
	const query = `SELECT ` + classRecordColumns + ` FROM class_records WHERE generation_id = $1 AND intake_code = $2 AND start_time >= $3 AND start_time <= $4 ORDER BY start_time ASC`
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, generationID, intakeCode, from, to); err != nil {
		return nil, fmt.Errorf("list records by intake range: %w", err)
	}
	return records, nil
}

// ListByIntakeAndDay returns a generation's records for an intake on the
// given weekday name, ordered by start time.
func (r *ClassRecordRepository) ListByIntakeAndDay(ctx context.Context, generationID, intakeCode, day string) ([]models.ClassRecord, error) {
	const query = `SELECT ` + classRecordColumns + ` FROM class_records WHERE generation_id = $1 AND intake_code = $2 AND day = $3 ORDER BY start_time ASC`
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, generationID, intakeCode, day); err != nil {
		return nil, fmt.Errorf("list records by intake day: %w", err)
	}
	return records, nil
}

// ListByRoomAndRange returns records whose room key contains the given
// search key within the inclusive window, ordered by start time.
func (r *ClassRecordRepository) ListByRoomAndRange(ctx context.Context, generationID, roomKey string, from, to time.Time) ([]models.ClassRecord, error) {
	const query = `SELECT ` + classRecordColumns + ` FROM class_records WHERE generation_id = $1 AND room_key LIKE '%' || $2 || '%' AND start_time >= $3 AND start_time <= $4 ORDER BY start_time ASC`
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, generationID, roomKey, from, to); err != nil {
		return nil, fmt.Errorf("list records by room range: %w", err)
	}
	return records, nil
}

// OccupiedRoomKeys returns the distinct room keys with a class overlapping
// the window. Touching endpoints count as overlapping.
func (r *ClassRecordRepository) OccupiedRoomKeys(ctx context.Context, generationID string, windowStart, windowEnd time.Time) ([]string, error) {
	const query = `SELECT DISTINCT room_key FROM class_records WHERE generation_id = $1 AND start_time <= $2 AND end_time >= $3`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, generationID, windowEnd, windowStart); err != nil {
		return nil, fmt.Errorf("list occupied room keys: %w", err)
	}
	return keys, nil
}

// ListRooms returns the distinct rooms known to a generation.
func (r *ClassRecordRepository) ListRooms(ctx context.Context, generationID string) ([]models.Room, error) {
	const query = `SELECT DISTINCT room_key, room_number FROM class_records WHERE generation_id = $1`
	var result []models.Room
	if err := r.db.SelectContext(ctx, &result, query, generationID); err != nil {
		return nil, fmt.Errorf("list generation rooms: %w", err)
	}
	return result, nil
}
