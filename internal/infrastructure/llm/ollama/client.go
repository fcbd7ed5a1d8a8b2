package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL, genModel, embedModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "ollama embed", resilience.MarkTemporary("ollama embed", err, resilience.ClassifyHTTP))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "ollama embed", errors.New("empty embedding result"))
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	text, err := g.client.generate(ctx, system, prompt, false)
	if err != nil {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "ollama generate", resilience.MarkTemporary("ollama generate", err, resilience.ClassifyHTTP))
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "ollama generate", errors.New("empty response"))
	}
	return text, nil
}

// EntityExtractor asks the generation model for product entities in JSON.
type EntityExtractor struct {
	client *Client
}

func NewEntityExtractor(client *Client) *EntityExtractor {
	return &EntityExtractor{client: client}
}

func (e *EntityExtractor) ExtractEntities(ctx context.Context, text string) (domain.ExtractedEntities, error) {
	raw, err := e.client.generate(ctx, entityExtractionSystemPrompt, truncate(text, maxPromptSnippet), true)
	if err != nil {
		return domain.ExtractedEntities{}, resilience.MarkTemporary("ollama extract entities", err, resilience.ClassifyHTTP)
	}

	var out domain.ExtractedEntities
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &out); err != nil {
		return domain.ExtractedEntities{}, fmt.Errorf("parse entities json: %w", err)
	}
	out.Products = cleanNames(out.Products)
	out.Categories = cleanNames(out.Categories)
	out.Ingredients = cleanNames(out.Ingredients)
	out.Topics = cleanNames(out.Topics)
	return out, nil
}

func (c *Client) generate(ctx context.Context, system, prompt string, jsonFormat bool) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	if system != "" {
		reqBody["system"] = system
	}
	if jsonFormat {
		reqBody["format"] = "json"
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func cleanNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
