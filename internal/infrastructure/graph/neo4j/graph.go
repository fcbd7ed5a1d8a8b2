// Package neo4j is the product knowledge graph backed by Neo4j.
package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/resilience"
)

const (
	labelProduct    = "Product"
	labelCategory   = "Category"
	labelIngredient = "Ingredient"
	labelTopic      = "Topic"
)

var labelTypes = map[string]string{
	labelProduct:    domain.EntityProduct,
	labelCategory:   domain.EntityCategory,
	labelIngredient: domain.EntityIngredient,
	labelTopic:      domain.EntityTopic,
}

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

type Graph struct {
	driver   neo4j.DriverWithContext
	database string
	executor *resilience.Executor
}

type Option func(*Graph)

func WithExecutor(executor *resilience.Executor) Option {
	return func(g *Graph) {
		g.executor = executor
	}
}

func New(ctx context.Context, cfg Config, opts ...Option) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	g := &Graph{driver: driver, database: cfg.Database}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// EntitiesFor returns direct mentions of the chunk plus the categories,
// ingredients and topics linked to the products it mentions. An unknown chunk
// yields an empty bag.
func (g *Graph) EntitiesFor(ctx context.Context, chunkID string) (domain.EntityBag, error) {
	result, err := resilience.Call(ctx, g.executor, "neo4j.entities_for", func(callCtx context.Context) (*neo4j.EagerResult, error) {
		return g.read(callCtx, entitiesForChunkQuery, map[string]any{"chunkId": chunkID})
	}, classifyNeo4jError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGraphUnavailable, "neo4j entities for chunk", err)
	}

	rows := make([]labelRow, 0, len(result.Records))
	for _, record := range result.Records {
		row, err := labelRowFromRecord(record)
		if err != nil {
			return nil, domain.WrapError(domain.ErrGraphUnavailable, "neo4j entities for chunk", err)
		}
		rows = append(rows, row)
	}
	return bagFromRows(rows), nil
}

func (g *Graph) AggregateCounts(ctx context.Context) (domain.CategoryCounts, error) {
	counts, err := resilience.Call(ctx, g.executor, "neo4j.aggregate_counts", func(callCtx context.Context) (domain.CategoryCounts, error) {
		totalResult, err := g.read(callCtx, totalProductsQuery, nil)
		if err != nil {
			return domain.CategoryCounts{}, err
		}
		categoryResult, err := g.read(callCtx, categoryCountsQuery, nil)
		if err != nil {
			return domain.CategoryCounts{}, err
		}
		return countsFromRecords(totalResult.Records, categoryResult.Records)
	}, classifyNeo4jError)
	if err != nil {
		return domain.CategoryCounts{}, domain.WrapError(domain.ErrGraphUnavailable, "neo4j aggregate counts", err)
	}
	return counts, nil
}

// MergeChunkEntities links a chunk to its extracted entities in one write
// transaction. Re-running it for the same chunk is idempotent.
func (g *Graph) MergeChunkEntities(ctx context.Context, chunkID string, entities domain.ExtractedEntities) error {
	statements := mergeStatements(chunkID, entities)
	err := g.execute(ctx, "neo4j.merge_chunk_entities", func(callCtx context.Context) error {
		session := g.driver.NewSession(callCtx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: g.database,
		})
		defer session.Close(callCtx)

		_, err := session.ExecuteWrite(callCtx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, stmt := range statements {
				result, err := tx.Run(callCtx, stmt.query, stmt.params)
				if err != nil {
					return nil, err
				}
				if _, err := result.Consume(callCtx); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		return err
	})
	if err != nil {
		return domain.WrapError(domain.ErrGraphUnavailable, "neo4j merge chunk entities", err)
	}
	return nil
}

func (g *Graph) read(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, g.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
}

func (g *Graph) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if g.executor == nil {
		return fn(ctx)
	}
	return g.executor.Execute(ctx, operation, fn, classifyNeo4jError)
}

type statement struct {
	query  string
	params map[string]any
}

type namedItem struct {
	name        string
	displayName string
}

func mergeStatements(chunkID string, entities domain.ExtractedEntities) []statement {
	byLabel := map[string][]namedItem{
		labelProduct:    namedItems(entities.Products),
		labelCategory:   namedItems(entities.Categories),
		labelIngredient: namedItems(entities.Ingredients),
		labelTopic:      namedItems(entities.Topics),
	}

	statements := []statement{{query: mergeChunkQuery, params: map[string]any{"chunkId": chunkID}}}
	for _, label := range []string{labelProduct, labelCategory, labelIngredient, labelTopic} {
		items := byLabel[label]
		if len(items) == 0 {
			continue
		}
		params := make([]map[string]any, 0, len(items))
		for _, item := range items {
			params = append(params, map[string]any{"name": item.name, "displayName": item.displayName})
		}
		statements = append(statements, statement{
			query:  mentionQueries[label],
			params: map[string]any{"chunkId": chunkID, "items": params},
		})
	}

	products := itemNames(byLabel[labelProduct])
	if len(products) == 0 {
		return statements
	}
	for _, link := range productLinks {
		targets := itemNames(byLabel[link.label])
		if len(targets) == 0 {
			continue
		}
		statements = append(statements, statement{
			query:  productLinkQuery(link),
			params: map[string]any{"products": products, "targets": targets},
		})
	}
	return statements
}

// namedItems drops blanks and keeps the first display spelling per lowercase name.
func namedItems(names []string) []namedItem {
	seen := make(map[string]struct{}, len(names))
	out := make([]namedItem, 0, len(names))
	for _, raw := range names {
		display := strings.TrimSpace(raw)
		if display == "" {
			continue
		}
		key := strings.ToLower(display)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, namedItem{name: key, displayName: display})
	}
	return out
}

func itemNames(items []namedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.name)
	}
	return out
}

type labelRow struct {
	label string
	names []string
}

func labelRowFromRecord(record *neo4j.Record) (labelRow, error) {
	label, _, err := neo4j.GetRecordValue[string](record, "label")
	if err != nil {
		return labelRow{}, fmt.Errorf("read label: %w", err)
	}
	rawNames, _, err := neo4j.GetRecordValue[[]any](record, "names")
	if err != nil {
		return labelRow{}, fmt.Errorf("read names: %w", err)
	}
	names := make([]string, 0, len(rawNames))
	for _, raw := range rawNames {
		if name, ok := raw.(string); ok {
			names = append(names, name)
		}
	}
	return labelRow{label: label, names: names}, nil
}

func bagFromRows(rows []labelRow) domain.EntityBag {
	bag := domain.EntityBag{}
	for _, row := range rows {
		entityType, ok := labelTypes[row.label]
		if !ok {
			continue
		}
		for _, name := range row.names {
			name = strings.TrimSpace(name)
			if name == "" || containsFold(bag[entityType], name) {
				continue
			}
			bag[entityType] = append(bag[entityType], name)
		}
	}
	for entityType := range bag {
		sort.Strings(bag[entityType])
	}
	return bag
}

func containsFold(values []string, candidate string) bool {
	for _, v := range values {
		if strings.EqualFold(v, candidate) {
			return true
		}
	}
	return false
}

func countsFromRecords(totalRecords, categoryRecords []*neo4j.Record) (domain.CategoryCounts, error) {
	counts := domain.CategoryCounts{Categories: make(map[string]int, len(categoryRecords))}
	if len(totalRecords) > 0 {
		total, _, err := neo4j.GetRecordValue[int64](totalRecords[0], "total")
		if err != nil {
			return domain.CategoryCounts{}, fmt.Errorf("read total: %w", err)
		}
		counts.TotalProducts = int(total)
	}
	for _, record := range categoryRecords {
		category, isNil, err := neo4j.GetRecordValue[string](record, "category")
		if err != nil {
			return domain.CategoryCounts{}, fmt.Errorf("read category: %w", err)
		}
		if isNil || category == "" {
			continue
		}
		products, _, err := neo4j.GetRecordValue[int64](record, "products")
		if err != nil {
			return domain.CategoryCounts{}, fmt.Errorf("read category count: %w", err)
		}
		counts.Categories[category] += int(products)
	}
	return counts, nil
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	return resilience.ClassifyTransient(err, func(err error) bool {
		return neo4j.IsRetryable(err) || neo4j.IsConnectivityError(err)
	})
}
