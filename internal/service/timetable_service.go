package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/rooms"
)

// businessDays maps accepted day parameters to canonical weekday names.
// Weekend days are rejected; the feed never schedules them.
var businessDays = map[string]string{
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
}

// GenerationReader reads generations for query serving.
type GenerationReader interface {
	LatestValid(ctx context.Context, now time.Time) (*models.Generation, error)
	CountRecords(ctx context.Context, id string) (int, error)
}

// ClassRecordReader reads class records scoped to one generation.
type ClassRecordReader interface {
	ListByIntakeAndRange(ctx context.Context, generationID, intakeCode string, from, to time.Time) ([]models.ClassRecord, error)
	ListByIntakeAndDay(ctx context.Context, generationID, intakeCode, day string) ([]models.ClassRecord, error)
	ListByRoomAndRange(ctx context.Context, generationID, roomKey string, from, to time.Time) ([]models.ClassRecord, error)
	OccupiedRoomKeys(ctx context.Context, generationID string, windowStart, windowEnd time.Time) ([]string, error)
	ListRooms(ctx context.Context, generationID string) ([]models.Room, error)
}

// Refresher triggers a cache refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) (*models.Generation, int, error)
}

// TimetableService answers timetable queries against the latest valid
// generation, transparently refreshing once when none exists.
type TimetableService struct {
	generations GenerationReader
	records     ClassRecordReader
	refresher   Refresher
	cache       *CacheService
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
}

// NewTimetableService constructs a timetable query service.
func NewTimetableService(generations GenerationReader, records ClassRecordReader, refresher Refresher, cache *CacheService, logger *zap.Logger, loc *time.Location) *TimetableService {
	if loc == nil {
		loc = time.UTC
	}
	return &TimetableService{
		generations: generations,
		records:     records,
		refresher:   refresher,
		cache:       cache,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
	}
}

// currentGeneration resolves the generation queries run against. A miss
// triggers exactly one refresh; if that refresh cannot produce a
// generation the miss is surfaced, never retried.
func (s *TimetableService) currentGeneration(ctx context.Context) (*models.Generation, error) {
	gen, err := s.generations.LatestValid(ctx, s.now())
	if err == nil {
		return gen, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve current generation")
	}

	s.logger.Info("no valid generation, refreshing")
	gen, _, err = s.refresher.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// CurrentGeneration exposes the generation serving queries right now,
// including its record count.
func (s *TimetableService) CurrentGeneration(ctx context.Context) (*dto.GenerationInfo, error) {
	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.generations.CountRecords(ctx, gen.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count generation records")
	}
	return &dto.GenerationInfo{
		ID:         gen.ID,
		FetchedAt:  gen.FetchedAt,
		ValidUntil: gen.ValidUntil,
		Records:    count,
	}, nil
}

// WeekWindow returns the Monday 00:00:00 to Friday 23:59:59 window of the
// week containing the given instant, in the campus timezone.
func (s *TimetableService) WeekWindow(at time.Time) (time.Time, time.Time) {
	local := at.In(s.loc)
	offset := (int(local.Weekday()) + 6) % 7
	monday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -offset)
	friday := monday.AddDate(0, 0, 4).Add(24*time.Hour - time.Second)
	return monday, friday
}

// WeeklyByIntake returns the intake's classes for the current week,
// Monday through Friday.
func (s *TimetableService) WeeklyByIntake(ctx context.Context, intakeCode string) ([]dto.ClassItem, *models.Generation, error) {
	from, to := s.WeekWindow(s.now())
	return s.ByIntakeRange(ctx, intakeCode, from, to)
}

// ByIntakeRange returns the intake's classes starting inside the inclusive
// window, ordered by start time.
func (s *TimetableService) ByIntakeRange(ctx context.Context, intakeCode string, from, to time.Time) ([]dto.ClassItem, *models.Generation, error) {
	intakeCode = strings.ToUpper(strings.TrimSpace(intakeCode))
	if intakeCode == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "intake code is required")
	}
	if to.Before(from) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "window end precedes window start")
	}

	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return nil, nil, err
	}

	key := Key("intake", gen.ID, intakeCode, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	var cached []dto.ClassItem
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, gen, nil
	}

	records, err := s.records.ListByIntakeAndRange(ctx, gen.ID, intakeCode, from, to)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "query intake timetable")
	}

	items := dto.NewClassItems(records)
	if err := s.cache.Set(ctx, key, items, 0); err != nil {
		s.logger.Warn("intake query cache write failed", zap.String("key", key), zap.Error(err))
	}
	return items, gen, nil
}

// DailyByIntake returns the intake's classes on one business day.
func (s *TimetableService) DailyByIntake(ctx context.Context, intakeCode, day string) ([]dto.ClassItem, *models.Generation, error) {
	intakeCode = strings.ToUpper(strings.TrimSpace(intakeCode))
	if intakeCode == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "intake code is required")
	}
	canonical, ok := businessDays[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q, expected monday through friday", day))
	}

	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return nil, nil, err
	}

	key := Key("intake-day", gen.ID, intakeCode, canonical)
	var cached []dto.ClassItem
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, gen, nil
	}

	records, err := s.records.ListByIntakeAndDay(ctx, gen.ID, intakeCode, canonical)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "query intake day timetable")
	}

	items := dto.NewClassItems(records)
	if err := s.cache.Set(ctx, key, items, 0); err != nil {
		s.logger.Warn("intake day query cache write failed", zap.String("key", key), zap.Error(err))
	}
	return items, gen, nil
}

// RoomSchedule returns classes held in rooms matching the given room text
// within the window. Matching runs on canonical search keys, so any spelling
// the canonicalizer accepts finds the room.
func (s *TimetableService) RoomSchedule(ctx context.Context, room string, from, to time.Time) ([]dto.ClassItem, *models.Generation, error) {
	if strings.TrimSpace(room) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "room is required")
	}
	if from.IsZero() || to.IsZero() {
		from, to = s.WeekWindow(s.now())
	}
	if to.Before(from) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "window end precedes window start")
	}

	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return nil, nil, err
	}

	records, err := s.records.ListByRoomAndRange(ctx, gen.ID, rooms.SearchKey(room), from, to)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "query room schedule")
	}
	return dto.NewClassItems(records), gen, nil
}

// EmptyRooms returns the physical rooms with no class overlapping the
// window, sorted by room key. Classes that merely touch the window edge
// still count as occupying it.
func (s *TimetableService) EmptyRooms(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Room, *models.Generation, error) {
	if windowStart.IsZero() {
		windowStart = s.now()
	}
	if windowEnd.IsZero() {
		windowEnd = windowStart.Add(time.Hour)
	}
	if windowEnd.Before(windowStart) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "window end precedes window start")
	}

	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return nil, nil, err
	}

	occupied, err := s.records.OccupiedRoomKeys(ctx, gen.ID, windowStart, windowEnd)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "query occupied rooms")
	}
	busy := make(map[string]struct{}, len(occupied))
	for _, key := range occupied {
		busy[key] = struct{}{}
	}

	all, err := s.records.ListRooms(ctx, gen.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list generation rooms")
	}

	seen := make(map[string]struct{}, len(all))
	free := make([]models.Room, 0, len(all))
	for _, room := range all {
		if !rooms.IsPhysical(room.Display) {
			continue
		}
		if _, taken := busy[room.Key]; taken {
			continue
		}
		if _, dup := seen[room.Key]; dup {
			continue
		}
		seen[room.Key] = struct{}{}
		free = append(free, room)
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Key < free[j].Key })

	return free, gen, nil
}

// DescribeRoom canonicalizes a raw room string without touching storage.
func (s *TimetableService) DescribeRoom(raw string) (*dto.RoomInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room is required")
	}
	canonical := rooms.Normalize(raw)
	info := &dto.RoomInfo{
		Raw:       raw,
		Canonical: canonical,
		SearchKey: rooms.SearchKey(raw),
		Physical:  rooms.IsPhysical(canonical),
	}
	if level, ok := rooms.Level(raw); ok {
		info.Level = &level
	}
	return info, nil
}
