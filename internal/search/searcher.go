// Package search ranks enriched bookmarks against a query by cosine
// similarity over their embeddings. Ranking is an exact linear scan.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/models"
)

const DefaultLimit = 5

var (
	// ErrEmptyQuery is returned for a blank query string
	ErrEmptyQuery = errors.New("query is empty")
	// ErrUnknownSite is returned by Similar when the site is not in the corpus
	ErrUnknownSite = errors.New("site not found")
	// ErrNoEmbedding is returned by Similar when the site has no vector
	ErrNoEmbedding = errors.New("site has no embedding")
)

// Embedder produces query vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher struct {
	embedder     Embedder
	defaultLimit int
	logger       *logrus.Entry
}

func NewSearcher(embedder Embedder, defaultLimit int, logger *logrus.Entry) *Searcher {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if logger == nil {
		logger = logrus.WithField("component", "search")
	}
	return &Searcher{
		embedder:     embedder,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Search embeds the query and returns the top limit records of corpus by
// descending similarity. Records without an embedding are never returned.
// Equal scores keep corpus order.
func (s *Searcher) Search(ctx context.Context, query string, corpus []models.EnrichedBookmark, limit int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if !anyEmbedded(corpus) {
		return []models.SearchResult{}, nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.rank(queryVector, corpus, "", limit)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Debug("Search completed")
	return results, nil
}

// Similar ranks corpus against the stored embedding of site, excluding the
// site itself.
func (s *Searcher) Similar(corpus []models.EnrichedBookmark, site string, limit int) ([]models.SearchResult, error) {
	var source *models.EnrichedBookmark
	for i := range corpus {
		if corpus[i].Site == site {
			source = &corpus[i]
			break
		}
	}
	if source == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, site)
	}
	if !source.HasEmbedding() {
		return nil, fmt.Errorf("%w: %s", ErrNoEmbedding, site)
	}
	return s.rank(source.Embedding, corpus, site, limit)
}

func (s *Searcher) rank(vector []float32, corpus []models.EnrichedBookmark, exclude string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	results := make([]models.SearchResult, 0, len(corpus))
	for _, rec := range corpus {
		if !rec.HasEmbedding() || (exclude != "" && rec.Site == exclude) {
			continue
		}
		score, err := CosineSimilarity(vector, rec.Embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", rec.Site, err)
		}
		results = append(results, models.SearchResult{
			EnrichedBookmark: rec,
			Similarity:       score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func anyEmbedded(corpus []models.EnrichedBookmark) bool {
	for _, rec := range corpus {
		if rec.HasEmbedding() {
			return true
		}
	}
	return false
}
