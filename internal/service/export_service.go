package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/export"
	"github.com/noah-isme/uni-timetable-api/pkg/storage"
)

// Export formats accepted by the weekly export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type weeklyTimetable interface {
	WeeklyByIntake(ctx context.Context, intakeCode string) ([]dto.ClassItem, *models.Generation, error)
}

type exportStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult captures a successfully rendered weekly export.
type ExportResult struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Records   int       `json:"records"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders weekly intake timetables to downloadable files.
type ExportService struct {
	timetable weeklyTimetable
	store     exportStore
	signer    *storage.DownloadSigner
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	resultTTL time.Duration
}

// NewExportService constructs an ExportService.
func NewExportService(timetable weeklyTimetable, store exportStore, signer *storage.DownloadSigner, logger *zap.Logger, resultTTL time.Duration) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &ExportService{
		timetable: timetable,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		resultTTL: resultTTL,
	}
}

// WeeklyExport renders the intake's current week as CSV or PDF, stores the
// file and returns a signed download token for it.
func (s *ExportService) WeeklyExport(ctx context.Context, intakeCode, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	items, gen, err := s.timetable.WeeklyByIntake(ctx, intakeCode)
	if err != nil {
		return nil, err
	}

	dataset := buildWeeklyDataset(items)
	title := fmt.Sprintf("Weekly Timetable %s", strings.ToUpper(strings.TrimSpace(intakeCode)))

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render weekly export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("weekly/%s_%s_%s.%s",
		strings.ToUpper(strings.TrimSpace(intakeCode)),
		gen.FetchedAt.Format("20060102"),
		exportID[:8],
		format)

	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store weekly export")
	}

	token, expiresAt, err := s.signer.Sign(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign export download")
	}

	s.logger.Info("weekly export rendered",
		zap.String("intake", intakeCode),
		zap.String("format", format),
		zap.Int("records", len(items)),
		zap.String("file", relPath))

	return &ExportResult{
		ID:        exportID,
		Filename:  relPath,
		Format:    format,
		Records:   len(items),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed download token to the stored file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// Cleanup removes exports older than the result TTL.
func (s *ExportService) Cleanup() {
	deleted, err := s.store.CleanupOlderThan(s.resultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func buildWeeklyDataset(items []dto.ClassItem) export.Dataset {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		grouping := ""
		if item.Grouping != nil {
			grouping = *item.Grouping
		}
		rows = append(rows, []string{
			item.Day,
			item.StartTime.Format("15:04"),
			item.EndTime.Format("15:04"),
			item.ModuleCode,
			item.ModuleName,
			item.Room,
			grouping,
		})
	}
	return export.Dataset{
		Headers: []string{"Day", "Start", "End", "Module Code", "Module Name", "Room", "Grouping"},
		Rows:    rows,
	}
}
