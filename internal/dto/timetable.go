package dto

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/pkg/rooms"
)

var validate = validator.New()

// IntakeParam carries an intake code path parameter through validation.
// Codes are free-form upstream but bounded; anything outside these limits
// is a typo, not an intake.
type IntakeParam struct {
	Code string `validate:"required,min=3,max=32"`
}

// ValidateIntake checks an intake code parameter before it reaches storage.
func ValidateIntake(code string) error {
	return validate.Struct(IntakeParam{Code: strings.TrimSpace(code)})
}

// ClassItem is the API shape of one scheduled session.
type ClassItem struct {
	IntakeCode string    `json:"intake_code"`
	ModuleCode string    `json:"module_code"`
	ModuleName string    `json:"module_name"`
	Room       string    `json:"room"`
	Physical   bool      `json:"physical"`
	Grouping   *string   `json:"grouping,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Day        string    `json:"day"`
}

// NewClassItem converts a stored class record for API consumption.
func NewClassItem(record models.ClassRecord) ClassItem {
	return ClassItem{
		IntakeCode: record.IntakeCode,
		ModuleCode: record.ModuleCode,
		ModuleName: record.ModuleName,
		Room:       record.RoomNumber,
		Physical:   rooms.IsPhysical(record.RoomNumber),
		Grouping:   record.Grouping,
		StartTime:  record.StartTime,
		EndTime:    record.EndTime,
		Day:        record.Day,
	}
}

// NewClassItems converts a slice of records, never returning nil so that
// empty results serialize as [].
func NewClassItems(records []models.ClassRecord) []ClassItem {
	items := make([]ClassItem, 0, len(records))
	for _, record := range records {
		items = append(items, NewClassItem(record))
	}
	return items
}

// GenerationInfo describes the cache generation serving a response.
type GenerationInfo struct {
	ID         string    `json:"id"`
	FetchedAt  time.Time `json:"fetched_at"`
	ValidUntil time.Time `json:"valid_until"`
	Records    int       `json:"records,omitempty"`
}

// RoomInfo is the response of the room canonicalization helper endpoint.
type RoomInfo struct {
	Raw       string `json:"raw"`
	Canonical string `json:"canonical"`
	SearchKey string `json:"search_key"`
	Physical  bool   `json:"physical"`
	Level     *int   `json:"level,omitempty"`
}
