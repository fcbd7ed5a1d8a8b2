// Package elastic is the Elasticsearch kNN implementation of the vector index.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/resilience"
)

const bulkBatchSize = 500

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type Client struct {
	es       *elasticsearch.Client
	index    string
	executor *resilience.Executor

	ensureMu sync.Mutex
	ensured  bool
}

type Option func(*Client)

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	esCfg := elasticsearch.Config{Addresses: cfg.Addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	c := &Client{es: es, index: cfg.Index}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chunkDocument struct {
	ChunkID    string    `json:"chunk_id"`
	Content    string    `json:"content"`
	SourceURL  string    `json:"source_url"`
	ChunkIndex int       `json:"chunk_index"`
	ScrapedAt  string    `json:"scraped_at,omitempty"`
	Vector     []float32 `json:"vector,omitempty"`
}

func (c *Client) Search(ctx context.Context, queryVector []float32, topK int) ([]domain.CandidateChunk, error) {
	body, err := json.Marshal(map[string]any{
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   queryVector,
			"k":              topK,
			"num_candidates": max(100, topK*10),
		},
		"_source": []string{"chunk_id", "content", "source_url", "chunk_index"},
		"size":    topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal knn query: %w", err)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string        `json:"_id"`
				Score  float64       `json:"_score"`
				Source chunkDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	err = c.execute(ctx, "search", func(callCtx context.Context) error {
		res, err := c.es.Search(
			c.es.Search.WithContext(callCtx),
			c.es.Search.WithIndex(c.index),
			c.es.Search.WithBody(bytes.NewReader(body)),
		)
		if err != nil {
			return fmt.Errorf("elasticsearch search request: %w", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return statusError("search", res)
		}
		return json.NewDecoder(res.Body).Decode(&searchResp)
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrVectorSearchUnavailable, "elasticsearch search", err)
	}

	out := make([]domain.CandidateChunk, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		id := hit.Source.ChunkID
		if id == "" {
			id = hit.ID
		}
		out = append(out, domain.CandidateChunk{
			ID:         id,
			Content:    hit.Source.Content,
			SourceURL:  hit.Source.SourceURL,
			ChunkIndex: hit.Source.ChunkIndex,
			Score:      hit.Score,
		})
	}
	return out, nil
}

// Upsert indexes chunks with the bulk API, keyed by chunk id.
func (c *Client) Upsert(ctx context.Context, chunks []domain.ChunkInput, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "elasticsearch upsert", fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors)))
	}
	if err := c.ensureIndex(ctx, len(vectors[0])); err != nil {
		return domain.WrapError(domain.ErrVectorSearchUnavailable, "elasticsearch ensure index", err)
	}

	for start := 0; start < len(chunks); start += bulkBatchSize {
		end := min(start+bulkBatchSize, len(chunks))
		payload, err := bulkBody(chunks[start:end], vectors[start:end])
		if err != nil {
			return err
		}
		if err := c.bulk(ctx, payload); err != nil {
			return domain.WrapError(domain.ErrVectorSearchUnavailable, "elasticsearch upsert", err)
		}
	}
	return nil
}

func bulkBody(chunks []domain.ChunkInput, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, chunk := range chunks {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_id": chunk.ID}}); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		doc := chunkDocument{
			ChunkID:    chunk.ID,
			Content:    chunk.Content,
			SourceURL:  chunk.SourceURL,
			ChunkIndex: chunk.ChunkIndex,
			Vector:     vectors[i],
		}
		if !chunk.ScrapedAt.IsZero() {
			doc.ScrapedAt = chunk.ScrapedAt.UTC().Format(time.RFC3339)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode bulk document: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func (c *Client) bulk(ctx context.Context, payload []byte) error {
	return c.execute(ctx, "bulk", func(callCtx context.Context) error {
		res, err := c.es.Bulk(
			bytes.NewReader(payload),
			c.es.Bulk.WithContext(callCtx),
			c.es.Bulk.WithIndex(c.index),
			c.es.Bulk.WithRefresh("wait_for"),
		)
		if err != nil {
			return fmt.Errorf("elasticsearch bulk request: %w", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return statusError("bulk", res)
		}

		var bulkResp struct {
			Errors bool `json:"errors"`
			Items  []map[string]struct {
				Status int `json:"status"`
				Error  struct {
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"items"`
		}
		if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
			return fmt.Errorf("decode bulk response: %w", err)
		}
		if !bulkResp.Errors {
			return nil
		}
		failed := 0
		reason := ""
		for _, item := range bulkResp.Items {
			for _, result := range item {
				if result.Status >= 300 {
					failed++
					reason = result.Error.Reason
				}
			}
		}
		return fmt.Errorf("elasticsearch bulk: %d documents failed: %s", failed, reason)
	})
}

func (c *Client) ensureIndex(ctx context.Context, dims int) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensured {
		return nil
	}

	mapping, err := json.Marshal(map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"chunk_id":    map[string]any{"type": "keyword"},
				"content":     map[string]any{"type": "text"},
				"source_url":  map[string]any{"type": "keyword"},
				"chunk_index": map[string]any{"type": "integer"},
				"scraped_at":  map[string]any{"type": "date"},
				"vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	err = c.execute(ctx, "create_index", func(callCtx context.Context) error {
		res, err := c.es.Indices.Create(
			c.index,
			c.es.Indices.Create.WithContext(callCtx),
			c.es.Indices.Create.WithBody(bytes.NewReader(mapping)),
		)
		if err != nil {
			return fmt.Errorf("elasticsearch create index request: %w", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			statusErr := statusError("create_index", res)
			if res.StatusCode == http.StatusBadRequest && strings.Contains(statusErr.Body, "resource_already_exists_exception") {
				return nil
			}
			return statusErr
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.ensured = true
	return nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, "elasticsearch."+operation, fn, resilience.ClassifyHTTP)
}

func statusError(operation string, res *esapi.Response) *resilience.StatusError {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	return &resilience.StatusError{
		Service:    "elasticsearch",
		Operation:  operation,
		StatusCode: res.StatusCode,
		Status:     res.Status(),
		Body:       string(body),
	}
}
