package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TEIEmbedder talks to a Hugging Face text-embeddings-inference server. It
// requests token-level vectors and mean-pools them locally.
type TEIEmbedder struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func NewTEIEmbedder(baseURL, model string) *TEIEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}
	return &TEIEmbedder{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		HTTPClient: http.DefaultClient,
	}
}

func (p *TEIEmbedder) Name() string {
	return "tei"
}

func (p *TEIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"inputs":   text,
		"truncate": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/embed_all", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tei embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Provider: p.Name(), Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	// one token matrix per input
	var result [][][]float32
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result) == 0 || len(result[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}

	pooled, err := MeanPool(result[0])
	if err != nil {
		return nil, err
	}
	return Normalize(pooled), nil
}
