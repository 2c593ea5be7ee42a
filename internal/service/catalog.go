package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electrobot/catalog/internal/client"
	"electrobot/catalog/internal/parser"
	"electrobot/catalog/internal/repository"
	"electrobot/catalog/internal/store"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrEmptyCatalog = errors.New("feed contains no products")

// CatalogService keeps the store in sync with the feed.
type CatalogService struct {
	store       *store.Store
	client      client.FeedClient
	parser      *parser.Parser
	repository  repository.RefreshRepository
	format      parser.Format
	minInterval time.Duration
	now         func() time.Time
}

func NewCatalogService(
	store *store.Store,
	client client.FeedClient,
	parser *parser.Parser,
	repository repository.RefreshRepository,
	format parser.Format,
	minInterval time.Duration,
) *CatalogService {
	return &CatalogService{
		store:       store,
		client:      client,
		parser:      parser,
		repository:  repository,
		format:      format,
		minInterval: minInterval,
		now:         time.Now,
	}
}

func (s *CatalogService) Store() *store.Store {
	return s.store
}

// Items is the size of the installed catalog.
func (s *CatalogService) Items() int {
	return s.store.Snapshot().Len()
}

// Refresh fetches and installs the feed and reports whether the item count
// changed. Unless forced, it does nothing when the last fetch is more recent
// than the minimum interval. On any failure the current catalog is kept.
func (s *CatalogService) Refresh(ctx context.Context, force bool) (bool, error) {
	record := &repository.RefreshRecord{
		ID:        uuid.New(),
		Forced:    force,
		StartedAt: s.now(),
	}
	logger := log.WithFields(log.Fields{"refresh": record.ID, "forced": force})

	throttled := false
	changed := false
	err := s.store.Update(func(_ *store.Snapshot, meta *store.Meta) (*store.Snapshot, error) {
		now := s.now()
		if !force && !meta.LastFetch.IsZero() && now.Sub(meta.LastFetch) < s.minInterval {
			throttled = true
			return nil, nil
		}
		// a failed attempt still counts, so the next retry waits for the interval
		meta.LastFetch = now

		resp, err := s.client.Fetch(ctx, client.Validators{ETag: meta.ETag, LastModified: meta.LastModified})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed: %w", err)
		}
		if resp.NotModified {
			record.Status = repository.StatusNotModified
			record.Items = meta.LastItemCount
			meta.ETag, meta.LastModified = resp.ETag, resp.LastModified
			return nil, nil
		}

		format := s.format
		if format == "" {
			if format, err = parser.DetectFormat(resp.ContentType, s.client.URL(), resp.Body); err != nil {
				return nil, fmt.Errorf("failed to detect feed format: %w", err)
			}
		}
		record.Format = format.String()

		products, err := s.parser.Parse(format, resp.Body)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			return nil, ErrEmptyCatalog
		}

		snap := store.NewSnapshot(products, now)
		changed = len(products) != meta.LastItemCount
		meta.ETag, meta.LastModified = resp.ETag, resp.LastModified
		meta.LastItemCount = len(products)
		if changed {
			meta.LastChange = now
			record.Status = repository.StatusUpdated
		} else {
			record.Status = repository.StatusUnchanged
		}
		record.Items = len(products)
		return snap, nil
	})

	if throttled {
		logger.Debug("Refresh skipped, last fetch is too recent")
		return false, nil
	}

	record.FinishedAt = s.now()
	if err != nil {
		record.Status = repository.StatusFailed
		record.Error = err.Error()
		logger.Errorf("❌ Catalog refresh failed, keeping %d items: %v", s.store.Snapshot().Len(), err)
	} else {
		logger.Infof("✅ Catalog refresh %s: %d items in %v", record.Status, record.Items,
			record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond))
	}

	if saveErr := s.repository.SaveRefresh(ctx, record); saveErr != nil {
		logger.Warnf("⚠️ Failed to record refresh: %v", saveErr)
	}

	return changed, err
}
