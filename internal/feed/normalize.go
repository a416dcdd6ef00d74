package feed

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/rooms"
)

// Normalize maps one raw feed record to a canonical class record owned by
// the given generation. Pure function, no I/O.
//
// The weekday is derived from the start timestamp in loc, and the room is
// stored in both its canonical display form and its search key.
func Normalize(rec dto.FeedRecord, generationID string, loc *time.Location) (models.ClassRecord, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, err := time.Parse(time.RFC3339, rec.From())
	if err != nil {
		return models.ClassRecord{}, appErrors.Wrap(err, appErrors.ErrInvalidFeed.Code, appErrors.ErrInvalidFeed.Status,
			fmt.Sprintf("invalid start time %q", rec.From()))
	}
	end, err := time.Parse(time.RFC3339, rec.To())
	if err != nil {
		return models.ClassRecord{}, appErrors.Wrap(err, appErrors.ErrInvalidFeed.Code, appErrors.ErrInvalidFeed.Status,
			fmt.Sprintf("invalid end time %q", rec.To()))
	}

	var grouping *string
	if rec.Grouping != "" {
		g := rec.Grouping
		grouping = &g
	}

	return models.ClassRecord{
		ID:           uuid.NewString(),
		GenerationID: generationID,
		IntakeCode:   rec.Intake,
		ModuleCode:   rec.ModuleCode(),
		ModuleName:   rec.ModuleName,
		RoomNumber:   rooms.Normalize(rec.Room),
		RoomKey:      rooms.SearchKey(rec.Room),
		Grouping:     grouping,
		StartTime:    start,
		EndTime:      end,
		Day:          start.In(loc).Weekday().String(),
	}, nil
}
