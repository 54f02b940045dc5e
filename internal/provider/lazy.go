package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/config"
	"github.com/knowledge-engine/bookmarks/internal/retry"
)

// Factory builds the backend handle on first use
type Factory func(cfg config.EmbeddingConfig) (Embedder, error)

// Provider is the process-wide embedding handle. The backend is created on
// the first Embed call and reused for the life of the process. A failed
// initialization is remembered and returned on every later call.
type Provider struct {
	cfg     config.EmbeddingConfig
	factory Factory
	policy  retry.Policy
	logger  *logrus.Entry

	once    sync.Once
	backend Embedder
	initErr error

	dimension atomic.Int64
}

func NewProvider(cfg config.EmbeddingConfig, factory Factory, logger *logrus.Entry) *Provider {
	if factory == nil {
		factory = NewBackend
	}
	if logger == nil {
		logger = logrus.WithField("component", "provider")
	}
	p := &Provider{
		cfg:     cfg,
		factory: factory,
		policy: retry.Policy{
			Attempts: cfg.Retries,
			Timeout:  cfg.Timeout,
			Backoff:  cfg.RetryBackoff,
		},
		logger: logger,
	}
	if cfg.Dimension > 0 {
		p.dimension.Store(int64(cfg.Dimension))
	}
	return p
}

func (p *Provider) init() (Embedder, error) {
	p.once.Do(func() {
		p.backend, p.initErr = p.factory(p.cfg)
		if p.initErr != nil {
			p.logger.WithError(p.initErr).Error("Failed to initialize embedding backend")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"backend": p.backend.Name(),
			"model":   p.cfg.Model,
		}).Info("Embedding backend initialized")
	})
	return p.backend, p.initErr
}

// Name returns the configured provider name
func (p *Provider) Name() string {
	if p.cfg.Provider == "" {
		return "tei"
	}
	return p.cfg.Provider
}

// Dimension returns the locked vector size, or 0 if none has been seen yet
func (p *Provider) Dimension() int {
	return int(p.dimension.Load())
}

// Embed returns an L2-normalized vector of the locked dimension for text.
// Text longer than the configured character budget is truncated first.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	backend, err := p.init()
	if err != nil {
		return nil, &EmbeddingError{Provider: p.Name(), Err: err}
	}

	input := Truncate(text, p.cfg.MaxChars)
	if len(input) < len(text) {
		p.logger.WithFields(logrus.Fields{
			"original_bytes":  len(text),
			"truncated_bytes": len(input),
		}).Debug("Truncated embedding input")
	}

	var vec []float32
	err = p.policy.Do(ctx, func(ctx context.Context) error {
		v, err := backend.Embed(ctx, input)
		if err != nil {
			if !isTransient(err) {
				return retry.Permanent(err)
			}
			p.logger.WithError(err).Debug("Transient embedding error")
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, &EmbeddingError{Provider: backend.Name(), Err: err}
	}
	if len(vec) == 0 {
		return nil, &EmbeddingError{Provider: backend.Name(), Err: ErrEmptyEmbedding}
	}

	// lock to the first observed size when none is configured
	p.dimension.CompareAndSwap(0, int64(len(vec)))
	if want := p.dimension.Load(); int64(len(vec)) != want {
		return nil, &EmbeddingError{
			Provider: backend.Name(),
			Err:      fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want),
		}
	}
	return vec, nil
}
