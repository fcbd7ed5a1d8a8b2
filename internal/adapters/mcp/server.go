// Package mcpadapter exposes the assistant's use cases as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const (
	serverName    = "graphrag-assistant"
	serverVersion = "1.0.0"
	defaultTop    = 5
	maxTop        = 50
)

type Services struct {
	Classifier ports.IntentClassifier
	Search     ports.SearchService
	Answer     ports.AnswerService
	Stores     ports.StoreService
	Counts     ports.CountService
}

type Handlers struct {
	services Services
}

func NewHandlers(services Services) *Handlers {
	return &Handlers{services: services}
}

func NewServer(services Services) *server.MCPServer {
	h := NewHandlers(services)
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false), server.WithRecovery())

	s.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Search product knowledge chunks ranked by vector similarity and entity overlap. Count questions return a count instead of matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query.")),
		mcp.WithNumber("top", mcp.Description("Number of matches to return (1-50, default 5).")),
	), h.SearchProducts)

	s.AddTool(mcp.NewTool("answer_question",
		mcp.WithDescription("Answer a product question from retrieved context, product counts or nearby stores."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user's question.")),
		mcp.WithNumber("lat", mcp.Description("User latitude, used for store questions.")),
		mcp.WithNumber("lng", mcp.Description("User longitude, used for store questions.")),
		mcp.WithNumber("radiusKm", mcp.Description("Store search radius in kilometres (default 20).")),
	), h.AnswerQuestion)

	s.AddTool(mcp.NewTool("find_stores",
		mcp.WithDescription("Find stores within a radius that carry a product, nearest first."),
		mcp.WithString("product", mcp.Description("Product name. Either product or query is required.")),
		mcp.WithString("query", mcp.Description("Free text naming a known product.")),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the search centre.")),
		mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the search centre.")),
		mcp.WithNumber("radiusKm", mcp.Description("Search radius in kilometres (default 20).")),
	), h.FindStores)

	s.AddTool(mcp.NewTool("count_products",
		mcp.WithDescription("Count products in total or in the categories named by the query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Count question, for example 'how many coffee products are there?'.")),
		mcp.WithString("countIntent", mcp.Enum("total", "category"), mcp.Description("Force a total or category count instead of classifying the query.")),
	), h.CountProducts)

	return s
}

func (h *Handlers) SearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	top := request.GetInt("top", defaultTop)
	if top <= 0 || top > maxTop {
		return mcp.NewToolResultError(fmt.Sprintf("top must be between 1 and %d", maxTop)), nil
	}

	result, err := h.services.Search.Search(ctx, query, top, "")
	if err != nil {
		return toolError("search failed", err)
	}
	if result.Count != nil {
		return jsonResult(result.Count)
	}
	return jsonResult(result.Matches)
}

func (h *Handlers) AnswerQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var location *domain.StoreQuery
	args := request.GetArguments()
	_, hasLat := args["lat"]
	_, hasLng := args["lng"]
	if hasLat && hasLng {
		location = &domain.StoreQuery{
			Lat:      request.GetFloat("lat", 0),
			Lng:      request.GetFloat("lng", 0),
			RadiusKm: request.GetFloat("radiusKm", 0),
		}
	}

	answer, err := h.services.Answer.Answer(ctx, query, location)
	if err != nil {
		return toolError("answer failed", err)
	}
	return jsonResult(answer)
}

func (h *Handlers) FindStores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat, err := request.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lng, err := request.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := h.services.Stores.Locate(ctx, domain.StoreQuery{
		Query:    request.GetString("query", ""),
		Product:  request.GetString("product", ""),
		Lat:      lat,
		Lng:      lng,
		RadiusKm: request.GetFloat("radiusKm", 0),
	})
	if err != nil {
		return toolError("store lookup failed", err)
	}
	return jsonResult(result)
}

func (h *Handlers) CountProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	countIntent, ok := domain.ParseCountIntent(request.GetString("countIntent", ""))
	if !ok || countIntent == domain.CountIntentSearch {
		countIntent = domain.CountIntentTotal
		if h.services.Classifier != nil {
			if classified := h.services.Classifier.Classify(ctx, query); classified.IsCount() {
				countIntent = classified.Count
			}
		}
	}

	result, err := h.services.Counts.Resolve(ctx, query, countIntent)
	if err != nil {
		return toolError("count failed", err)
	}
	return jsonResult(result)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError reports caller mistakes and downstream outages as tool errors so
// the client model can react; only unclassified failures become protocol errors.
func toolError(message string, err error) (*mcp.CallToolResult, error) {
	for _, kind := range []error{
		domain.ErrInvalidInput,
		domain.ErrTemporary,
		domain.ErrEmbeddingUnavailable,
		domain.ErrVectorSearchUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrGraphUnavailable,
		domain.ErrStoreDataUnavailable,
	} {
		if errors.Is(err, kind) {
			return mcp.NewToolResultErrorFromErr(message, err), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", message, err)
}
