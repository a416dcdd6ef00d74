package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

var kualaLumpur = time.FixedZone("MYT", 8*60*60)

type stubGenerationReader struct {
	gen         *models.Generation
	err         error
	count       int
	latestCalls int
}

func (s *stubGenerationReader) LatestValid(ctx context.Context, now time.Time) (*models.Generation, error) {
	s.latestCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.gen, nil
}

func (s *stubGenerationReader) CountRecords(ctx context.Context, id string) (int, error) {
	return s.count, nil
}

type stubRefresher struct {
	gen   *models.Generation
	err   error
	calls int
}

func (s *stubRefresher) Refresh(ctx context.Context) (*models.Generation, int, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.gen, 0, nil
}

type stubRecordReader struct {
	records []models.ClassRecord
	rooms   []models.Room
	keys    []string

	gotGeneration string
	gotIntake     string
	gotDay        string
	gotRoomKey    string
	gotFrom       time.Time
	gotTo         time.Time
}

func (s *stubRecordReader) ListByIntakeAndRange(ctx context.Context, generationID, intakeCode string, from, to time.Time) ([]models.ClassRecord, error) {
	s.gotGeneration, s.gotIntake, s.gotFrom, s.gotTo = generationID, intakeCode, from, to
	return s.records, nil
}

func (s *stubRecordReader) ListByIntakeAndDay(ctx context.Context, generationID, intakeCode, day string) ([]models.ClassRecord, error) {
	s.gotGeneration, s.gotIntake, s.gotDay = generationID, intakeCode, day
	return s.records, nil
}

func (s *stubRecordReader) ListByRoomAndRange(ctx context.Context, generationID, roomKey string, from, to time.Time) ([]models.ClassRecord, error) {
	s.gotGeneration, s.gotRoomKey, s.gotFrom, s.gotTo = generationID, roomKey, from, to
	return s.records, nil
}

func (s *stubRecordReader) OccupiedRoomKeys(ctx context.Context, generationID string, windowStart, windowEnd time.Time) ([]string, error) {
	s.gotGeneration, s.gotFrom, s.gotTo = generationID, windowStart, windowEnd
	return s.keys, nil
}

func (s *stubRecordReader) ListRooms(ctx context.Context, generationID string) ([]models.Room, error) {
	return s.rooms, nil
}

func validGeneration() *models.Generation {
	return &models.Generation{
		ID:         "gen-1",
		FetchedAt:  time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}
}

func newTimetableFixture(gens *stubGenerationReader, records *stubRecordReader, refresher *stubRefresher) *TimetableService {
	svc := NewTimetableService(gens, records, refresher, nil, zap.NewNop(), kualaLumpur)
	svc.now = func() time.Time {
		// Wednesday afternoon campus time.
		return time.Date(2025, 3, 12, 15, 0, 0, 0, kualaLumpur)
	}
	return svc
}

func TestTimetableServiceRefreshesOnceOnMiss(t *testing.T) {
	gens := &stubGenerationReader{err: sql.ErrNoRows}
	refresher := &stubRefresher{gen: validGeneration()}
	records := &stubRecordReader{}
	svc := newTimetableFixture(gens, records, refresher)

	items, gen, err := svc.WeeklyByIntake(context.Background(), "APU2F2409SE")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, "gen-1", gen.ID)
	assert.Equal(t, 1, gens.latestCalls)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, "gen-1", records.gotGeneration)
}

func TestTimetableServiceSurfacesRefreshFailure(t *testing.T) {
	gens := &stubGenerationReader{err: sql.ErrNoRows}
	refresher := &stubRefresher{err: appErrors.Clone(appErrors.ErrFetchFailed, "upstream down")}
	svc := newTimetableFixture(gens, &stubRecordReader{}, refresher)

	_, _, err := svc.WeeklyByIntake(context.Background(), "APU2F2409SE")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFetchFailed.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, refresher.calls)
}

func TestTimetableServiceWeeklyWindow(t *testing.T) {
	gens := &stubGenerationReader{gen: validGeneration()}
	records := &stubRecordReader{}
	svc := newTimetableFixture(gens, records, &stubRefresher{})

	_, _, err := svc.WeeklyByIntake(context.Background(), "apu2f2409se")
	require.NoError(t, err)

	assert.Equal(t, "APU2F2409SE", records.gotIntake)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, kualaLumpur), records.gotFrom)
	assert.Equal(t, time.Date(2025, 3, 14, 23, 59, 59, 0, kualaLumpur), records.gotTo)
}

func TestTimetableServiceWeekWindowOnMonday(t *testing.T) {
	svc := newTimetableFixture(&stubGenerationReader{gen: validGeneration()}, &stubRecordReader{}, &stubRefresher{})

	from, to := svc.WeekWindow(time.Date(2025, 3, 10, 0, 30, 0, 0, kualaLumpur))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, kualaLumpur), from)
	assert.Equal(t, time.Date(2025, 3, 14, 23, 59, 59, 0, kualaLumpur), to)
}

func TestTimetableServiceValidatesIntake(t *testing.T) {
	svc := newTimetableFixture(&stubGenerationReader{gen: validGeneration()}, &stubRecordReader{}, &stubRefresher{})

	_, _, err := svc.WeeklyByIntake(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDailyByIntake(t *testing.T) {
	gens := &stubGenerationReader{gen: validGeneration()}
	records := &stubRecordReader{}
	svc := newTimetableFixture(gens, records, &stubRefresher{})

	_, _, err := svc.DailyByIntake(context.Background(), "APU2F2409SE", "WEDNESDAY")
	require.NoError(t, err)
	assert.Equal(t, "Wednesday", records.gotDay)
}

func TestTimetableServiceDailyByIntakeRejectsWeekend(t *testing.T) {
	svc := newTimetableFixture(&stubGenerationReader{gen: validGeneration()}, &stubRecordReader{}, &stubRefresher{})

	_, _, err := svc.DailyByIntake(context.Background(), "APU2F2409SE", "saturday")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceRoomScheduleCanonicalizesQuery(t *testing.T) {
	gens := &stubGenerationReader{gen: validGeneration()}
	records := &stubRecordReader{}
	svc := newTimetableFixture(gens, records, &stubRefresher{})

	_, _, err := svc.RoomSchedule(context.Background(), "AUDI2", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "auditorium 2", records.gotRoomKey)
	// Zero window falls back to the current week.
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, kualaLumpur), records.gotFrom)
}

func TestTimetableServiceEmptyRooms(t *testing.T) {
	gens := &stubGenerationReader{gen: validGeneration()}
	records := &stubRecordReader{
		keys: []string{"b-06-12"},
		rooms: []models.Room{
			{Key: "b-06-12", Display: "B-06-12"},
			{Key: "auditorium 2", Display: "Auditorium 2"},
			{Key: "auditorium 2", Display: "Auditorium 2"},
			{Key: "onlmco3", Display: "ONLMCO3"},
			{Key: "tech lab 4-05", Display: "Tech Lab 4-05"},
		},
	}
	svc := newTimetableFixture(gens, records, &stubRefresher{})

	windowStart := time.Date(2025, 3, 12, 10, 0, 0, 0, kualaLumpur)
	free, gen, err := svc.EmptyRooms(context.Background(), windowStart, windowStart.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", gen.ID)

	require.Len(t, free, 2)
	assert.Equal(t, "auditorium 2", free[0].Key)
	assert.Equal(t, "tech lab 4-05", free[1].Key)
}

func TestTimetableServiceEmptyRoomsRejectsInvertedWindow(t *testing.T) {
	svc := newTimetableFixture(&stubGenerationReader{gen: validGeneration()}, &stubRecordReader{}, &stubRefresher{})

	windowStart := time.Date(2025, 3, 12, 10, 0, 0, 0, kualaLumpur)
	_, _, err := svc.EmptyRooms(context.Background(), windowStart, windowStart.Add(-time.Hour))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCurrentGeneration(t *testing.T) {
	gens := &stubGenerationReader{gen: validGeneration(), count: 321}
	svc := newTimetableFixture(gens, &stubRecordReader{}, &stubRefresher{})

	info, err := svc.CurrentGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", info.ID)
	assert.Equal(t, 321, info.Records)
}

func TestTimetableServiceDescribeRoom(t *testing.T) {
	svc := newTimetableFixture(&stubGenerationReader{gen: validGeneration()}, &stubRecordReader{}, &stubRefresher{})

	info, err := svc.DescribeRoom("Auditorium 5 @ Level 6")
	require.NoError(t, err)
	assert.Equal(t, "Auditorium 5", info.Canonical)
	assert.Equal(t, "auditorium 5", info.SearchKey)
	assert.True(t, info.Physical)
	require.NotNil(t, info.Level)
	assert.Equal(t, 6, *info.Level)

	online, err := svc.DescribeRoom("ONLMCO3")
	require.NoError(t, err)
	assert.False(t, online.Physical)

	_, err = svc.DescribeRoom(" ")
	require.Error(t, err)
}
