package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

const intentSchema = `{
  "type": "object",
  "required": ["mainIntent", "countIntent"],
  "properties": {
    "mainIntent": {"type": "string", "enum": ["store", "info"]},
    "countIntent": {"type": "string", "enum": ["total", "category", "search"]}
  }
}`

var compiledIntentSchema = mustCompileSchema(intentSchema)

// IntentLabeler is the semantic fallback for intent classification. It never
// returns an error: every failure becomes a fallback label with a reason.
type IntentLabeler struct {
	client *Client
}

func NewIntentLabeler(client *Client) *IntentLabeler {
	return &IntentLabeler{client: client}
}

func (l *IntentLabeler) Label(ctx context.Context, query string) domain.SemanticLabel {
	raw, err := l.client.generate(ctx, intentSystemPrompt, truncate(query, maxPromptSnippet), true)
	if err != nil {
		return domain.LabelFallback("generate: " + err.Error())
	}
	return decodeIntentLabel(raw)
}

func decodeIntentLabel(raw string) domain.SemanticLabel {
	doc := extractJSONObject(raw)
	result, err := compiledIntentSchema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return domain.LabelFallback("malformed json: " + err.Error())
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return domain.LabelFallback("schema: " + strings.Join(reasons, "; "))
	}

	var payload struct {
		MainIntent  string `json:"mainIntent"`
		CountIntent string `json:"countIntent"`
	}
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return domain.LabelFallback("decode: " + err.Error())
	}
	main, _ := domain.ParseMainIntent(payload.MainIntent)
	count, _ := domain.ParseCountIntent(payload.CountIntent)
	return domain.LabelOK(domain.Intent{Main: main, Count: count})
}

func mustCompileSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compile intent schema: %v", err))
	}
	return compiled
}
