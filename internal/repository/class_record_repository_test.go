package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

func sampleRecords(n int) []models.ClassRecord {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	records := make([]models.ClassRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.ClassRecord{
			GenerationID: "gen-1",
			IntakeCode:   "APU2F2409SE",
			ModuleCode:   "CT018-3-2",
			ModuleName:   "Systems Programming",
			RoomNumber:   "B-06-12",
			RoomKey:      "b-06-12",
			StartTime:    start.Add(time.Duration(i) * time.Hour),
			EndTime:      start.Add(time.Duration(i+1) * time.Hour),
			Day:          "Monday",
		})
	}
	return records
}

func TestClassRecordRepositoryInsertChunk(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	records := sampleRecords(3)

	mock.ExpectBegin()
	for range records {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO class_records`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	err := repo.InsertChunk(context.Background(), records)
	require.NoError(t, err)
	for _, rec := range records {
		assert.NotEmpty(t, rec.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryInsertChunkRollsBack(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	records := sampleRecords(2)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO class_records`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO class_records`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.InsertChunk(context.Background(), records)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryInsertChunkEmpty(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	err := repo.InsertChunk(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryListByIntakeAndRange(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM class_records WHERE generation_id = $1 AND intake_code = $2 AND start_time >= $3 AND start_time <= $4 ORDER BY start_time ASC`)).
		WithArgs("gen-1", "APU2F2409SE", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "intake_code", "day"}).
			AddRow("rec-1", "APU2F2409SE", "Monday"))

	records, err := repo.ListByIntakeAndRange(context.Background(), "gen-1", "APU2F2409SE", from, to)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Monday", records[0].Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryListByIntakeAndDay(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM class_records WHERE generation_id = $1 AND intake_code = $2 AND day = $3 ORDER BY start_time ASC`)).
		WithArgs("gen-1", "APU2F2409SE", "Wednesday").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day"}).
			AddRow("rec-1", "Wednesday").
			AddRow("rec-2", "Wednesday"))

	records, err := repo.ListByIntakeAndDay(context.Background(), "gen-1", "APU2F2409SE", "Wednesday")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryListByRoomAndRange(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`room_key LIKE '%' || $2 || '%'`)).
		WithArgs("gen-1", "b-06-12", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_key"}).
			AddRow("rec-1", "b-06-12"))

	records, err := repo.ListByRoomAndRange(context.Background(), "gen-1", "b-06-12", from, to)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryOccupiedRoomKeys(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	windowStart := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(2 * time.Hour)

	// The overlap predicate binds the window end first.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT room_key FROM class_records WHERE generation_id = $1 AND start_time <= $2 AND end_time >= $3`)).
		WithArgs("gen-1", windowEnd, windowStart).
		WillReturnRows(sqlmock.NewRows([]string{"room_key"}).
			AddRow("b-06-12").
			AddRow("auditorium 2"))

	keys, err := repo.OccupiedRoomKeys(context.Background(), "gen-1", windowStart, windowEnd)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-06-12", "auditorium 2"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRecordRepositoryListRooms(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewClassRecordRepository(db, 30*time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT room_key, room_number FROM class_records WHERE generation_id = $1`)).
		WithArgs("gen-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_key", "room_number"}).
			AddRow("b-06-12", "B-06-12").
			AddRow("auditorium 2", "Auditorium 2"))

	rooms, err := repo.ListRooms(context.Background(), "gen-1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Auditorium 2", rooms[1].Display)
	assert.NoError(t, mock.ExpectationsWereMet())
}
