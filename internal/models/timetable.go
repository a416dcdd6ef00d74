package models

import (
	"fmt"
	"time"
)

// Generation is one fetch cycle's snapshot of the upstream timetable. It is
// immutable after creation and owns its class records (cascade delete).
type Generation struct {
	ID         string    `db:"id" json:"id"`
	FetchedAt  time.Time `db:"fetched_at" json:"fetched_at"`
	ValidUntil time.Time `db:"valid_until" json:"valid_until"`
}

// Valid reports whether the generation is still current at the given instant.
func (g Generation) Valid(now time.Time) bool {
	return g.ValidUntil.After(now)
}

// ClassRecord is one scheduled session belonging to a generation.
//
// RoomNumber keeps the canonical display form of the room; RoomKey is the
// case-folded search key derived from it. Day always equals the English
// weekday name of StartTime.
type ClassRecord struct {
	ID           string    `db:"id" json:"id"`
	GenerationID string    `db:"generation_id" json:"generation_id"`
	IntakeCode   string    `db:"intake_code" json:"intake_code"`
	ModuleCode   string    `db:"module_code" json:"module_code"`
	ModuleName   string    `db:"module_name" json:"module_name"`
	RoomNumber   string    `db:"room_number" json:"room_number"`
	RoomKey      string    `db:"room_key" json:"room_key"`
	Grouping     *string   `db:"grouping" json:"grouping,omitempty"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	Day          string    `db:"day" json:"day"`
}

// Room pairs a canonical room display name with its search key.
type Room struct {
	Key     string `db:"room_key" json:"key"`
	Display string `db:"room_number" json:"display"`
}

// ChunkInsertError reports a failed bulk-load chunk. By the time it surfaces
// the partially loaded generation has already been rolled back.
type ChunkInsertError struct {
	Chunk int
	Total int
	Err   error
}

// Error implements the error interface.
func (e *ChunkInsertError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("insert chunk %d/%d: %v", e.Chunk, e.Total, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ChunkInsertError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
