package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/config"
	"github.com/knowledge-engine/bookmarks/internal/models"
)

// Store defines the interface for reading bookmarks and persisting enriched records
type Store interface {
	LoadBookmarks() ([]models.Bookmark, error)
	SaveEnriched(records []models.EnrichedBookmark) error
	LoadEnriched() ([]models.EnrichedBookmark, error)
	Close() error
}

// FileStorage implements Store with JSON files in a single data directory
type FileStorage struct {
	bookmarksPath  string
	enrichedPath   string
	embeddingsPath string
	logger         *logrus.Entry
	mu             sync.RWMutex
}

// NewFileStorage creates the data directory if needed
func NewFileStorage(cfg config.StorageConfig, logger *logrus.Entry) (*FileStorage, error) {
	if logger == nil {
		logger = logrus.WithField("component", "storage")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		bookmarksPath:  filepath.Join(cfg.DataDir, cfg.BookmarksFile),
		enrichedPath:   filepath.Join(cfg.DataDir, cfg.EnrichedFile),
		embeddingsPath: filepath.Join(cfg.DataDir, cfg.EmbeddingsFile),
		logger:         logger,
	}, nil
}

// LoadBookmarks reads the raw bookmark list. A missing file yields an empty
// list. Records repeating an earlier site are dropped.
func (s *FileStorage) LoadBookmarks() ([]models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw []models.Bookmark
	found, err := readJSON(s.bookmarksPath, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.WithField("path", s.bookmarksPath).Warn("Bookmarks file not found, nothing to enrich")
		return []models.Bookmark{}, nil
	}

	seen := make(map[string]bool, len(raw))
	bookmarks := make([]models.Bookmark, 0, len(raw))
	for _, b := range raw {
		if seen[b.Site] {
			s.logger.WithField("site", b.Site).Warn("Dropping duplicate bookmark")
			continue
		}
		seen[b.Site] = true
		bookmarks = append(bookmarks, b.Normalized())
	}
	return bookmarks, nil
}

// SaveEnriched overwrites the enriched file and rewrites the embeddings file
// from the same records, one vector per embedded record in list order.
func (s *FileStorage) SaveEnriched(records []models.EnrichedBookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.EnrichedBookmark, len(records))
	embeddings := make([][]float32, 0, len(records))
	for i, r := range records {
		r.Bookmark = r.Bookmark.Normalized()
		out[i] = r
		if r.HasEmbedding() {
			embeddings = append(embeddings, r.Embedding)
		}
	}

	// both files are staged before either is replaced
	enrichedTmp, err := stageJSON(s.enrichedPath, out)
	if err != nil {
		return err
	}
	defer os.Remove(enrichedTmp)

	embeddingsTmp, err := stageJSON(s.embeddingsPath, embeddings)
	if err != nil {
		return err
	}
	defer os.Remove(embeddingsTmp)

	if err := os.Rename(embeddingsTmp, s.embeddingsPath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.embeddingsPath, err)
	}
	if err := os.Rename(enrichedTmp, s.enrichedPath); err != nil {
		s.logger.WithError(err).Error("Embeddings file replaced but enriched file was not, rerun enrichment")
		return fmt.Errorf("failed to replace %s: %w", s.enrichedPath, err)
	}

	s.logger.WithFields(logrus.Fields{
		"records":    len(out),
		"embeddings": len(embeddings),
	}).Info("Saved enriched bookmarks")
	return nil
}

// LoadEnriched reads the enriched records back. A missing file yields an
// empty list.
func (s *FileStorage) LoadEnriched() ([]models.EnrichedBookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.EnrichedBookmark
	if _, err := readJSON(s.enrichedPath, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.EnrichedBookmark{}
	}
	return records, nil
}

// Close is a no-op for file storage
func (s *FileStorage) Close() error {
	return nil
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

// stageJSON writes v to a temp file next to path and returns its name. The
// caller renames it into place or removes it.
func stageJSON(path string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return tmp.Name(), nil
}
