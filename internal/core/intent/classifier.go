// Package intent decides whether a query asks for stores, counts or product
// information.
package intent

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const defaultSemanticTimeout = 10 * time.Second

type Classifier struct {
	labeler ports.IntentLabeler
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Classifier)

func WithSemanticTimeout(timeout time.Duration) Option {
	return func(c *Classifier) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClassifier(labeler ports.IntentLabeler, opts ...Option) *Classifier {
	c := &Classifier{
		labeler: labeler,
		timeout: defaultSemanticTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify always returns an intent; semantic failures degrade to the default.
func (c *Classifier) Classify(ctx context.Context, query string) domain.Intent {
	hits := MatchRules(query)
	label := c.semanticLabel(ctx, query)

	intent, row := decide(hits, label)
	c.logger.Debug("intent_classified",
		"decision", row,
		"main_intent", intent.Main,
		"count_intent", intent.Count,
		"store_rule", hits.Store,
		"count_rule", hits.Count,
	)
	return intent
}

func (c *Classifier) semanticLabel(ctx context.Context, query string) domain.SemanticLabel {
	if c.labeler == nil {
		return domain.LabelFallback("semantic labeler not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	label := c.labeler.Label(callCtx, query)
	if label.IsFallback() {
		c.logger.Warn("intent_semantic_fallback", "reason", label.FallbackReason)
	}
	return label
}
