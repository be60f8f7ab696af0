package analysis

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/verdantlab/plantscan/internal/domain/analysis"
)

// Service implements use-cases untuk image analysis.
// Safe for concurrent use; all fields are set once at startup.
type Service struct {
	Store   domain.ObjectStore
	Vision  domain.Vision
	History domain.History // optional, nil when no database is configured
	Clock   Clock
	Model   string // recorded with each analysis, informational only
	Log     zerolog.Logger
}

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// AnalyzeResult is what /analyze hands back to the client.
type AnalyzeResult struct {
	ID          domain.AnalysisID `json:"id"`
	ImageFileID string            `json:"imageFileId"`
	Result      string            `json:"result"`
}

// Analyze persists the upload first, then submits it to the vision model.
// The store write always precedes the AI call; if the AI call fails the
// stored object is removed again (best effort) so a failed analysis leaves
// no orphan in the bucket.
func (s *Service) Analyze(ctx context.Context, img domain.UploadedImage) (AnalyzeResult, error) {
	if len(img.Data) == 0 {
		return AnalyzeResult{}, domain.ErrNoImage
	}
	if s.Store == nil {
		return AnalyzeResult{}, domain.ErrStoreUnavailable
	}

	now := s.Clock.Now()
	id := domain.AnalysisID(uuid.New().String())
	key := objectKey(string(id), img.Filename)

	if err := s.Store.Put(ctx, key, img.ContentType, img.Data); err != nil {
		return AnalyzeResult{}, &domain.StorageError{Op: "put", Err: err}
	}

	text, err := s.Vision.Analyze(ctx, img.Data, img.ContentType)
	if err != nil {
		// compensating delete; the request already failed, so only log
		if rmErr := s.Store.Remove(context.Background(), key); rmErr != nil {
			s.Log.Warn().Str("key", key).Err(rmErr).Msg("failed to remove object after analysis failure")
		}
		return AnalyzeResult{}, &domain.UpstreamError{Err: err}
	}

	record := &domain.Analysis{
		ID:          id,
		ImageFileID: key,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Model:       s.Model,
		Result:      text,
		CreatedAt:   now,
	}
	if s.History != nil {
		if err := s.History.Save(ctx, record); err != nil {
			s.Log.Warn().Str("id", string(id)).Err(err).Msg("failed to save analysis record")
		}
	}

	return AnalyzeResult{ID: id, ImageFileID: key, Result: text}, nil
}

// FetchImage streams a stored object back out of the bucket.
func (s *Service) FetchImage(ctx context.Context, key string) ([]byte, string, error) {
	if s.Store == nil {
		return nil, "", domain.ErrStoreUnavailable
	}
	data, contentType, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// Latest returns recent analysis records, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if s.History == nil {
		return nil, domain.ErrHistoryDisabled
	}
	return s.History.Latest(ctx, limit)
}

// objectKey mints the bucket key for an upload. The uuid prefix keeps keys
// unique even when clients upload the same filename repeatedly. Keys stay
// flat so they can double as the {id} path segment on /images/{id}.
func objectKey(id, filename string) string {
	base := path.Base(filename)
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s-%s", id, base)
}
