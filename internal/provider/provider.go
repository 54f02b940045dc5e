// Package provider turns text into fixed-dimension, L2-normalized embedding
// vectors using an external inference service.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/knowledge-engine/bookmarks/internal/config"
)

var (
	// ErrEmptyEmbedding is returned when the service answers without a vector
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")
	// ErrDimensionMismatch is returned when a vector does not have the fixed model dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrUnknownProvider is returned by NewBackend for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Embedder defines the interface for embedding model integration
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// EmbeddingError wraps any failure to produce an embedding
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s embedding failed: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-200 answer from the embedding service
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status: %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Code, e.Body)
}

// NewBackend creates the embedding client named by cfg.Provider
func NewBackend(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "tei":
		return NewTEIEmbedder(cfg.BaseURL, cfg.Model), nil
	case "ollama":
		if cfg.Model == "" {
			return nil, fmt.Errorf("ollama embedding model is required")
		}
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.Model, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// isTransient reports whether a backend error is worth retrying
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
