package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

// Fetcher retrieves the raw weekly timetable feed. It never retries; retry
// policy belongs to the caller.
type Fetcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewFetcher builds a feed fetcher for the given URL.
func NewFetcher(url string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch downloads and validates the feed, returning its raw records.
func (f *Fetcher) Fetch(ctx context.Context) ([]dto.FeedRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "build feed request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "fetch timetable feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, appErrors.Clone(appErrors.ErrFetchFailed, fmt.Sprintf("timetable feed returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "read feed body")
	}

	var records []dto.FeedRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFeed.Code, appErrors.ErrInvalidFeed.Status, "timetable feed is not a record array")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidFeed, "timetable feed is empty")
	}

	f.logger.Info("timetable feed fetched", zap.Int("records", len(records)))
	return records, nil
}
