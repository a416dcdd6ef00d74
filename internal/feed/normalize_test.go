package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

func kualaLumpur(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)
	return loc
}

func TestNormalizeDerivesWeekdayFromStart(t *testing.T) {
	rec := dto.FeedRecord{
		Intake:     "CT021-3-2-SFNB01",
		ModID:      "CT043-3-2",
		ModuleName: "Advanced Networks",
		Room:       "Audi 2 @ Level 6",
		Grouping:   "G1",
		TimeFrom:   "2025-03-10T09:00:00+08:00", // a Monday in Kuala Lumpur
		TimeTo:     "2025-03-10T11:00:00+08:00",
	}

	record, err := Normalize(rec, "gen-1", kualaLumpur(t))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", record.GenerationID)
	assert.Equal(t, "Monday", record.Day)
	assert.Equal(t, "Auditorium 2", record.RoomNumber)
	assert.Equal(t, "auditorium 2", record.RoomKey)
	require.NotNil(t, record.Grouping)
	assert.Equal(t, "G1", *record.Grouping)
	assert.NotEmpty(t, record.ID)
}

func TestNormalizeFeedFieldFallbacks(t *testing.T) {
	rec := dto.FeedRecord{
		Intake:     "APU2F2409SE",
		Module:     "CT107-3-3",
		ModuleName: "Concurrent Programming",
		Room:       "b 06 12",
		StartTime:  "2025-03-12T14:00:00+08:00",
		EndTime:    "2025-03-12T16:00:00+08:00",
	}

	record, err := Normalize(rec, "gen-1", kualaLumpur(t))
	require.NoError(t, err)
	assert.Equal(t, "CT107-3-3", record.ModuleCode)
	assert.Equal(t, "B-06-12", record.RoomNumber)
	assert.Equal(t, "Wednesday", record.Day)
	assert.Nil(t, record.Grouping)
}

func TestNormalizeRejectsBadTimestamps(t *testing.T) {
	rec := dto.FeedRecord{
		Intake:   "APU2F2409SE",
		ModID:    "CT107-3-3",
		Room:     "B-06-12",
		TimeFrom: "not-a-time",
		TimeTo:   "2025-03-12T16:00:00+08:00",
	}

	_, err := Normalize(rec, "gen-1", kualaLumpur(t))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFeed.Code, appErrors.FromError(err).Code)
}
