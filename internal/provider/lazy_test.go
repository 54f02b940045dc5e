package provider_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/bookmarks/internal/config"
	"github.com/knowledge-engine/bookmarks/internal/provider"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) Name() string {
	return "mock"
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("test", "provider")
}

func factoryFor(e provider.Embedder, calls *int) provider.Factory {
	var mu sync.Mutex
	return func(config.EmbeddingConfig) (provider.Embedder, error) {
		mu.Lock()
		defer mu.Unlock()
		*calls++
		return e, nil
	}
}

func TestProvider_InitializesOnce(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{}, factoryFor(backend, &calls), testLogger())
	assert.Equal(t, 0, calls)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Embed(context.Background(), "text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	backend.AssertNumberOfCalls(t, "Embed", 10)
}

func TestProvider_InitFailureIsSticky(t *testing.T) {
	var calls int
	boom := errors.New("model not found")
	p := provider.NewProvider(config.EmbeddingConfig{Provider: "tei"}, func(config.EmbeddingConfig) (provider.Embedder, error) {
		calls++
		return nil, boom
	}, testLogger())

	for i := 0; i < 3; i++ {
		_, err := p.Embed(context.Background(), "text")
		var embErr *provider.EmbeddingError
		require.True(t, errors.As(err, &embErr))
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 1, calls)
}

func TestProvider_TruncatesInput(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, "abcde").Return([]float32{1}, nil)

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{MaxChars: 5}, factoryFor(backend, &calls), testLogger())
	_, err := p.Embed(context.Background(), "abcdefghij")
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestProvider_DimensionLock(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, "first").Return([]float32{1, 0, 0}, nil)
	backend.On("Embed", mock.Anything, "second").Return([]float32{1, 0}, nil)

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{}, factoryFor(backend, &calls), testLogger())
	assert.Equal(t, 0, p.Dimension())

	_, err := p.Embed(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Dimension())

	_, err = p.Embed(context.Background(), "second")
	assert.ErrorIs(t, err, provider.ErrDimensionMismatch)
}

func TestProvider_ConfiguredDimension(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{Dimension: 384}, factoryFor(backend, &calls), testLogger())
	_, err := p.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, provider.ErrDimensionMismatch)
	assert.Equal(t, 384, p.Dimension())
}

func TestProvider_EmptyVector(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, mock.Anything).Return([]float32{}, nil)

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{}, factoryFor(backend, &calls), testLogger())
	_, err := p.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, provider.ErrEmptyEmbedding)
}

func TestProvider_RetriesTransientOnce(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, mock.Anything).
		Return(nil, &provider.StatusError{Provider: "mock", Code: 503}).Once()
	backend.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil).Once()

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{Retries: 1}, factoryFor(backend, &calls), testLogger())
	vec, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	backend.AssertNumberOfCalls(t, "Embed", 2)
}

func TestProvider_PermanentErrorNotRetried(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, mock.Anything).
		Return(nil, &provider.StatusError{Provider: "mock", Code: 400})

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{Retries: 3}, factoryFor(backend, &calls), testLogger())
	_, err := p.Embed(context.Background(), "text")

	var embErr *provider.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, "mock", embErr.Provider)
	backend.AssertNumberOfCalls(t, "Embed", 1)
}

func TestProvider_NegativeRetriesStillEmbeds(t *testing.T) {
	backend := new(MockEmbedder)
	backend.On("Embed", mock.Anything, "text").Return([]float32{1}, nil)

	var calls int
	p := provider.NewProvider(config.EmbeddingConfig{Retries: -1}, factoryFor(backend, &calls), testLogger())
	vec, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	backend.AssertNumberOfCalls(t, "Embed", 1)
}
