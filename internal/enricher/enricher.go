// Package enricher turns raw bookmarks into enriched records: page text is
// extracted, combined with the bookmark's own labels and embedded.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/fetcher"
	"github.com/knowledge-engine/bookmarks/internal/models"
)

// ErrMissingSite is returned for a bookmark without a URL
var ErrMissingSite = errors.New("bookmark has no site")

// ContentExtractor returns best-effort page text for a URL
type ContentExtractor interface {
	Extract(ctx context.Context, url string) fetcher.Page
}

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is the outcome of enriching one bookmark. Exactly one of Record and
// Err is set.
type Result struct {
	Bookmark models.Bookmark
	Record   *models.EnrichedBookmark
	Err      error
}

// Skipped reports whether the bookmark produced no record
func (r Result) Skipped() bool {
	return r.Record == nil
}

type Enricher struct {
	extractor ContentExtractor
	embedder  Embedder
	logger    *logrus.Entry
}

func NewEnricher(extractor ContentExtractor, embedder Embedder, logger *logrus.Entry) *Enricher {
	if logger == nil {
		logger = logrus.WithField("component", "enricher")
	}
	return &Enricher{
		extractor: extractor,
		embedder:  embedder,
		logger:    logger,
	}
}

// Enrich fetches, extracts and embeds a single bookmark. Failures are logged
// and reported as a skipped Result; a partial record is never returned.
func (e *Enricher) Enrich(ctx context.Context, b models.Bookmark) (res Result) {
	res.Bookmark = b
	log := e.logger.WithField("site", b.Site)

	defer func() {
		if r := recover(); r != nil {
			res.Record = nil
			res.Err = fmt.Errorf("panic while enriching %s: %v", b.Site, r)
			log.WithField("panic", r).Error("Recovered from panic during enrichment")
		}
	}()

	if strings.TrimSpace(b.Site) == "" {
		res.Err = ErrMissingSite
		log.WithError(res.Err).Warn("Skipping bookmark")
		return res
	}

	record := &models.EnrichedBookmark{Bookmark: b.Normalized()}

	if !fetcher.IsRawIPHost(b.Site) {
		page := e.extractor.Extract(ctx, b.Site)
		record.Title = page.Title
		record.Description = page.Description
		record.Content = page.Content
	}

	text := BuildText(record)
	if text == "" {
		log.Debug("No text available, storing without embedding")
		res.Record = record
		return res
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		res.Err = err
		log.WithError(err).Warn("Skipping bookmark, embedding failed")
		return res
	}
	record.Embedding = vec

	res.Record = record
	return res
}

// EnrichAll enriches bookmarks one at a time in input order. It returns early
// only when ctx is done; the results gathered so far are returned with the
// context's error.
func (e *Enricher) EnrichAll(ctx context.Context, bookmarks []models.Bookmark) ([]Result, error) {
	results := make([]Result, 0, len(bookmarks))
	for i, b := range bookmarks {
		if err := ctx.Err(); err != nil {
			e.logger.WithField("processed", i).Warn("Enrichment cancelled")
			return results, err
		}
		results = append(results, e.Enrich(ctx, b))
	}
	return results, nil
}

// BuildText joins title, description, content, categories and tags with
// single spaces, skipping empty parts.
func BuildText(r *models.EnrichedBookmark) string {
	parts := make([]string, 0, 3+len(r.Category)+len(r.Tag))
	for _, s := range []string{r.Title, r.Description, r.Content} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	for _, s := range r.Category {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	for _, s := range r.Tag {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
