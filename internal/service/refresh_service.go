package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/feed"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

// FeedFetcher retrieves the raw upstream timetable feed.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]dto.FeedRecord, error)
}

// GenerationStore abstracts generation persistence for refresh cycles.
type GenerationStore interface {
	Create(ctx context.Context, gen *models.Generation) error
	ListExpired(ctx context.Context, now time.Time) ([]models.Generation, error)
	DeleteCascade(ctx context.Context, id string) error
}

// RecordLoader abstracts the chunked bulk insert of class records.
type RecordLoader interface {
	InsertChunk(ctx context.Context, records []models.ClassRecord) error
}

// RefreshService drives a full cache refresh cycle: fetch the feed,
// normalize it, load it as a fresh generation and retire expired ones.
// Cycles are serialized; a caller that blocked behind a refresh which
// completed while it waited reuses that result instead of fetching again.
type RefreshService struct {
	fetcher     FeedFetcher
	generations GenerationStore
	records     RecordLoader
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	loc         *time.Location
	ttl         time.Duration
	chunkSize   int
	now         func() time.Time

	mu       sync.Mutex
	lastGen  *models.Generation
	lastSize int
	lastDone time.Time
}

// NewRefreshService constructs a refresh service.
func NewRefreshService(fetcher FeedFetcher, generations GenerationStore, records RecordLoader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, loc *time.Location, ttl time.Duration, chunkSize int) *RefreshService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RefreshService{
		fetcher:     fetcher,
		generations: generations,
		records:     records,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		loc:         loc,
		ttl:         ttl,
		chunkSize:   chunkSize,
		now:         time.Now,
	}
}

// Refresh runs one refresh cycle and returns the generation it produced
// together with the number of records loaded.
func (s *RefreshService) Refresh(ctx context.Context) (*models.Generation, int, error) {
	entered := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller finished a refresh while this one waited on the lock.
	if s.lastGen != nil && s.lastDone.After(entered) {
		return s.lastGen, s.lastSize, nil
	}

	start := s.now()
	gen, count, err := s.refresh(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveRefresh("failure", 0, s.now().Sub(start))
		}
		return nil, 0, err
	}

	s.lastGen = gen
	s.lastSize = count
	s.lastDone = s.now()

	if s.metrics != nil {
		s.metrics.ObserveRefresh("success", count, s.lastDone.Sub(start))
	}
	return gen, count, nil
}

func (s *RefreshService) refresh(ctx context.Context) (*models.Generation, int, error) {
	raw, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, 0, err
	}

	fetchedAt := s.now().UTC()
	gen := &models.Generation{
		FetchedAt:  fetchedAt,
		ValidUntil: fetchedAt.Add(s.ttl),
	}

	// Normalize the whole feed before touching the database so a malformed
	// feed never creates an empty generation.
	records := make([]models.ClassRecord, 0, len(raw))
	for i, rec := range raw {
		normalized, err := feed.Normalize(rec, "", s.loc)
		if err != nil {
			s.logger.Error("feed record rejected",
				zap.Int("index", i),
				zap.String("intake", rec.Intake),
				zap.Error(err))
			return nil, 0, err
		}
		records = append(records, normalized)
	}

	if err := s.generations.Create(ctx, gen); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create timetable generation")
	}
	for i := range records {
		records[i].GenerationID = gen.ID
	}

	if err := s.load(ctx, gen, records); err != nil {
		return nil, 0, err
	}

	s.cleanupExpired(ctx, gen.ID)

	if s.cache.Enabled() {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn("query cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("timetable refreshed",
		zap.String("generation_id", gen.ID),
		zap.Int("records", len(records)),
		zap.Time("valid_until", gen.ValidUntil))

	return gen, len(records), nil
}

// load inserts the records in fixed-size chunks. Any failed chunk deletes
// the whole generation so readers never observe a partial load.
func (s *RefreshService) load(ctx context.Context, gen *models.Generation, records []models.ClassRecord) error {
	total := (len(records) + s.chunkSize - 1) / s.chunkSize

	for i := 0; i < len(records); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := i/s.chunkSize + 1

		if err := s.records.InsertChunk(ctx, records[i:end]); err != nil {
			chunkErr := &models.ChunkInsertError{Chunk: chunk, Total: total, Err: err}
			s.logger.Error("chunk insert failed, rolling back generation",
				zap.String("generation_id", gen.ID),
				zap.Int("chunk", chunk),
				zap.Int("total_chunks", total),
				zap.Error(err))

			if delErr := s.generations.DeleteCascade(ctx, gen.ID); delErr != nil {
				s.logger.Error("compensating delete failed",
					zap.String("generation_id", gen.ID),
					zap.Error(delErr))
			}
			return appErrors.Wrap(chunkErr, appErrors.ErrInsertChunk.Code, appErrors.ErrInsertChunk.Status, appErrors.ErrInsertChunk.Message)
		}
	}
	return nil
}

// cleanupExpired retires lapsed generations after the new one is in place.
// Failures only log; a leftover expired generation is harmless.
func (s *RefreshService) cleanupExpired(ctx context.Context, currentID string) {
	expired, err := s.generations.ListExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("expired generation listing failed", zap.Error(err))
		return
	}
	for _, gen := range expired {
		if gen.ID == currentID {
			continue
		}
		if err := s.generations.DeleteCascade(ctx, gen.ID); err != nil {
			s.logger.Warn("expired generation delete failed",
				zap.String("generation_id", gen.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("expired generation removed", zap.String("generation_id", gen.ID))
	}
}

// IsFeedUnavailable reports whether the error came from the upstream feed
// rather than local storage.
func IsFeedUnavailable(err error) bool {
	if err == nil {
		return false
	}
	code := appErrors.FromError(err).Code
	return code == appErrors.ErrFetchFailed.Code || code == appErrors.ErrInvalidFeed.Code
}
