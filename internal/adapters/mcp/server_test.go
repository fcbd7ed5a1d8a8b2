package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

type classifierStub struct{ intent domain.Intent }

func (c classifierStub) Classify(context.Context, string) domain.Intent { return c.intent }

type searchStub struct {
	result *domain.SearchResult
	err    error
	top    int
}

func (s *searchStub) Search(_ context.Context, _ string, topK int, _ domain.CountIntent) (*domain.SearchResult, error) {
	s.top = topK
	return s.result, s.err
}

type answerStub struct {
	location *domain.StoreQuery
}

func (a *answerStub) Answer(_ context.Context, query string, location *domain.StoreQuery) (*domain.Answer, error) {
	a.location = location
	return &domain.Answer{Text: "answer to " + query, Sources: []domain.Source{}, Intent: domain.DefaultIntent()}, nil
}

type storesStub struct {
	got domain.StoreQuery
	err error
}

func (s *storesStub) Locate(_ context.Context, q domain.StoreQuery) (*domain.StoreResult, error) {
	s.got = q
	if s.err != nil {
		return nil, s.err
	}
	return &domain.StoreResult{Stores: []domain.StoreMatch{{Name: "Corner Store", DistanceKm: 0.5}}}, nil
}

type countsStub struct {
	gotIntent domain.CountIntent
}

func (c *countsStub) Resolve(_ context.Context, _ string, countIntent domain.CountIntent) (*domain.CountResult, error) {
	c.gotIntent = countIntent
	return &domain.CountResult{Intent: countIntent, Count: 40, Message: "There are 40 coffee products."}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestSearchProductsReturnsMatches(t *testing.T) {
	search := &searchStub{result: &domain.SearchResult{
		Intent:  domain.DefaultIntent(),
		Matches: []domain.Match{{CandidateChunk: domain.CandidateChunk{ID: "c1", Content: "Aero"}, FinalScore: 1.2}},
	}}
	h := NewHandlers(Services{Search: search})

	result, err := h.SearchProducts(context.Background(), callRequest("search_products", map[string]any{"query": "aero", "top": 3}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 3, search.top)

	var matches []domain.Match
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "c1", matches[0].ID)
}

func TestSearchProductsValidatesArguments(t *testing.T) {
	h := NewHandlers(Services{Search: &searchStub{}})

	result, err := h.SearchProducts(context.Background(), callRequest("search_products", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = h.SearchProducts(context.Background(), callRequest("search_products", map[string]any{"query": "aero", "top": 500}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchProductsDownstreamFailureIsToolError(t *testing.T) {
	search := &searchStub{err: domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", errors.New("down"))}
	h := NewHandlers(Services{Search: search})

	result, err := h.SearchProducts(context.Background(), callRequest("search_products", map[string]any{"query": "aero"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAnswerQuestionLocation(t *testing.T) {
	answer := &answerStub{}
	h := NewHandlers(Services{Answer: answer})

	_, err := h.AnswerQuestion(context.Background(), callRequest("answer_question", map[string]any{"query": "where to buy kitkat", "lat": 43.65, "lng": -79.38}))
	require.NoError(t, err)
	require.NotNil(t, answer.location)
	assert.InDelta(t, -79.38, answer.location.Lng, 1e-9)

	_, err = h.AnswerQuestion(context.Background(), callRequest("answer_question", map[string]any{"query": "where to buy kitkat"}))
	require.NoError(t, err)
	assert.Nil(t, answer.location)
}

func TestFindStoresRequiresCoordinates(t *testing.T) {
	stores := &storesStub{}
	h := NewHandlers(Services{Stores: stores})

	result, err := h.FindStores(context.Background(), callRequest("find_stores", map[string]any{"product": "kitkat", "lat": 43.65}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = h.FindStores(context.Background(), callRequest("find_stores", map[string]any{"product": "kitkat", "lat": 43.65, "lng": -79.38}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "kitkat", stores.got.Product)
	assert.Contains(t, resultText(t, result), "Corner Store")
}

func TestFindStoresUnclassifiedErrorIsProtocolError(t *testing.T) {
	h := NewHandlers(Services{Stores: &storesStub{err: errors.New("boom")}})
	_, err := h.FindStores(context.Background(), callRequest("find_stores", map[string]any{"product": "kitkat", "lat": 1.0, "lng": 1.0}))
	assert.Error(t, err)
}

func TestCountProductsIntentSelection(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		classified domain.Intent
		want       domain.CountIntent
	}{
		{"explicit category", map[string]any{"query": "coffee", "countIntent": "category"}, domain.DefaultIntent(), domain.CountIntentCategory},
		{"classified category", map[string]any{"query": "how many coffee products"}, domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentCategory}, domain.CountIntentCategory},
		{"non count query defaults to total", map[string]any{"query": "tell me about aero"}, domain.DefaultIntent(), domain.CountIntentTotal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := &countsStub{}
			h := NewHandlers(Services{Counts: counts, Classifier: classifierStub{intent: tt.classified}})

			result, err := h.CountProducts(context.Background(), callRequest("count_products", tt.args))
			require.NoError(t, err)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.want, counts.gotIntent)
		})
	}
}

func TestNewServerListsTools(t *testing.T) {
	s := NewServer(Services{})
	response := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	raw, err := json.Marshal(response)
	require.NoError(t, err)
	for _, name := range []string{"search_products", "answer_question", "find_stores", "count_products"} {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}
