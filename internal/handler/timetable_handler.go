package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

type timetableService interface {
	WeeklyByIntake(ctx context.Context, intakeCode string) ([]dto.ClassItem, *models.Generation, error)
	ByIntakeRange(ctx context.Context, intakeCode string, from, to time.Time) ([]dto.ClassItem, *models.Generation, error)
	DailyByIntake(ctx context.Context, intakeCode, day string) ([]dto.ClassItem, *models.Generation, error)
	RoomSchedule(ctx context.Context, room string, from, to time.Time) ([]dto.ClassItem, *models.Generation, error)
	EmptyRooms(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Room, *models.Generation, error)
	CurrentGeneration(ctx context.Context) (*dto.GenerationInfo, error)
	DescribeRoom(raw string) (*dto.RoomInfo, error)
}

type refreshService interface {
	Refresh(ctx context.Context) (*models.Generation, int, error)
}

type exportService interface {
	WeeklyExport(ctx context.Context, intakeCode, format string) (*service.ExportResult, error)
	Open(token string) (*os.File, error)
}

// TimetableHandler wires timetable queries to HTTP endpoints.
type TimetableHandler struct {
	timetable timetableService
	refresher refreshService
	exports   exportService
	loc       *time.Location
}

// NewTimetableHandler constructs the handler. The exports service may be nil
// when the export feature is disabled.
func NewTimetableHandler(timetable timetableService, refresher refreshService, exports exportService, loc *time.Location) *TimetableHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TimetableHandler{timetable: timetable, refresher: refresher, exports: exports, loc: loc}
}

// Register mounts the timetable routes on the given router group.
func (h *TimetableHandler) Register(rg *gin.RouterGroup) {
	tt := rg.Group("/timetable")
	tt.GET("/generation", h.Generation)
	tt.POST("/refresh", h.Refresh)
	tt.GET("/intakes/:intake", h.Weekly)
	tt.GET("/intakes/:intake/days/:day", h.Daily)
	tt.GET("/rooms/empty", h.EmptyRooms)
	tt.GET("/rooms/describe", h.DescribeRoom)
	tt.GET("/rooms/:room", h.RoomSchedule)
	if h.exports != nil {
		tt.GET("/intakes/:intake/export", h.WeeklyExport)
		tt.GET("/exports/download", h.DownloadExport)
	}
}

// Generation godoc
// @Summary Generation currently serving queries
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/generation [get]
func (h *TimetableHandler) Generation(c *gin.Context) {
	info, err := h.timetable.CurrentGeneration(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}

// Refresh godoc
// @Summary Force a feed refresh cycle
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/refresh [post]
func (h *TimetableHandler) Refresh(c *gin.Context) {
	gen, count, err := h.refresher.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.GenerationInfo{
		ID:         gen.ID,
		FetchedAt:  gen.FetchedAt,
		ValidUntil: gen.ValidUntil,
		Records:    count,
	})
}

// Weekly godoc
// @Summary Intake timetable for the current week
// @Tags Timetable
// @Produce json
// @Param intake path string true "Intake code"
// @Param from query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetable/intakes/{intake} [get]
func (h *TimetableHandler) Weekly(c *gin.Context) {
	intake := c.Param("intake")
	if err := dto.ValidateIntake(intake); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intake code"))
		return
	}

	from, ok := h.parseTimeParam(c, "from", false)
	if !ok {
		return
	}
	to, ok := h.parseTimeParam(c, "to", true)
	if !ok {
		return
	}

	var (
		items []dto.ClassItem
		gen   *models.Generation
		err   error
	)
	if from.IsZero() && to.IsZero() {
		items, gen, err = h.timetable.WeeklyByIntake(c.Request.Context(), intake)
	} else {
		if from.IsZero() || to.IsZero() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to must be provided together"))
			return
		}
		items, gen, err = h.timetable.ByIntakeRange(c.Request.Context(), intake, from, to)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, generationMeta(gen))
}

// Daily godoc
// @Summary Intake timetable for one business day
// @Tags Timetable
// @Produce json
// @Param intake path string true "Intake code"
// @Param day path string true "Day name, monday through friday"
// @Success 200 {object} response.Envelope
// @Router /timetable/intakes/{intake}/days/{day} [get]
func (h *TimetableHandler) Daily(c *gin.Context) {
	if err := dto.ValidateIntake(c.Param("intake")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intake code"))
		return
	}
	items, gen, err := h.timetable.DailyByIntake(c.Request.Context(), c.Param("intake"), c.Param("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, generationMeta(gen))
}

// RoomSchedule godoc
// @Summary Classes held in a room
// @Tags Rooms
// @Produce json
// @Param room path string true "Room in any accepted spelling"
// @Param from query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetable/rooms/{room} [get]
func (h *TimetableHandler) RoomSchedule(c *gin.Context) {
	from, ok := h.parseTimeParam(c, "from", false)
	if !ok {
		return
	}
	to, ok := h.parseTimeParam(c, "to", true)
	if !ok {
		return
	}

	items, gen, err := h.timetable.RoomSchedule(c.Request.Context(), c.Param("room"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, generationMeta(gen))
}

// EmptyRooms godoc
// @Summary Physical rooms free during a window
// @Tags Rooms
// @Produce json
// @Param from query string false "Window start (RFC3339). Defaults to now"
// @Param to query string false "Window end (RFC3339). Defaults to one hour after start"
// @Success 200 {object} response.Envelope
// @Router /timetable/rooms/empty [get]
func (h *TimetableHandler) EmptyRooms(c *gin.Context) {
	from, ok := h.parseTimeParam(c, "from", false)
	if !ok {
		return
	}
	to, ok := h.parseTimeParam(c, "to", true)
	if !ok {
		return
	}

	rooms, gen, err := h.timetable.EmptyRooms(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, generationMeta(gen))
}

// DescribeRoom godoc
// @Summary Canonical form of a room string
// @Tags Rooms
// @Produce json
// @Param room query string true "Room in any accepted spelling"
// @Success 200 {object} response.Envelope
// @Router /timetable/rooms/describe [get]
func (h *TimetableHandler) DescribeRoom(c *gin.Context) {
	info, err := h.timetable.DescribeRoom(c.Query("room"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}

// WeeklyExport godoc
// @Summary Render the intake's current week as CSV or PDF
// @Tags Exports
// @Produce json
// @Param intake path string true "Intake code"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /timetable/intakes/{intake}/export [get]
func (h *TimetableHandler) WeeklyExport(c *gin.Context) {
	if err := dto.ValidateIntake(c.Param("intake")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intake code"))
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	result, err := h.exports.WeeklyExport(c.Request.Context(), c.Param("intake"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// DownloadExport godoc
// @Summary Download a rendered export by its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /timetable/exports/download [get]
func (h *TimetableHandler) DownloadExport(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export no longer available"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// parseTimeParam reads an optional time query parameter, accepting RFC3339
// timestamps or plain dates in the campus timezone. Date-only values for end
// parameters resolve to the last second of that day.
func (h *TimetableHandler) parseTimeParam(c *gin.Context, name string, endOfDay bool) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, h.loc); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, true
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s, expected RFC3339 or YYYY-MM-DD", name)))
	return time.Time{}, false
}

func generationMeta(gen *models.Generation) map[string]interface{} {
	if gen == nil {
		return nil
	}
	return map[string]interface{}{
		"generation_id": gen.ID,
		"fetched_at":    gen.FetchedAt,
		"valid_until":   gen.ValidUntil,
	}
}
