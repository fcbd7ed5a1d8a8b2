package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

func TestIngestPagesPublishesChunks(t *testing.T) {
	queue := &queueFake{}
	uc := NewIngestPagesUseCase(blankLineExtractor{}, passthroughChunker{}, queue)
	scraped := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	report, err := uc.IngestPages(context.Background(), []domain.Page{
		{SourceURL: "https://example.com/boost", Paragraphs: []string{"Boost is a drink.", "It has protein."}, ScrapedAt: scraped},
		{SourceURL: "https://example.com/aero", Text: "Aero has bubbles.\n\nAero is chocolate."},
	})
	if err != nil {
		t.Fatalf("IngestPages() error = %v", err)
	}
	if report.Pages != 2 || report.Chunks != 4 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(queue.published) != 4 {
		t.Fatalf("expected 4 published chunks, got %d", len(queue.published))
	}

	first := queue.published[0]
	if first.SourceURL != "https://example.com/boost" || first.ChunkIndex != 0 || !first.ScrapedAt.Equal(scraped) {
		t.Fatalf("unexpected first chunk %+v", first)
	}
	if first.ID != ChunkID("https://example.com/boost", 0) {
		t.Fatalf("expected deterministic chunk id, got %s", first.ID)
	}
	if queue.published[3].ChunkIndex != 1 || queue.published[3].Content != "Aero is chocolate." {
		t.Fatalf("unexpected last chunk %+v", queue.published[3])
	}
	if queue.published[2].ScrapedAt.IsZero() {
		t.Fatalf("expected scrapedAt defaulted to now")
	}
}

func TestChunkIDIsStableAndDistinct(t *testing.T) {
	a := ChunkID("https://example.com/x", 0)
	if a != ChunkID("https://example.com/x", 0) {
		t.Fatalf("expected stable id")
	}
	if a == ChunkID("https://example.com/x", 1) {
		t.Fatalf("expected distinct ids per chunk index")
	}
}

func TestIngestPagesValidation(t *testing.T) {
	uc := NewIngestPagesUseCase(blankLineExtractor{}, passthroughChunker{}, &queueFake{})

	if _, err := uc.IngestPages(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for no pages, got %v", err)
	}
	_, err := uc.IngestPages(context.Background(), []domain.Page{{Text: "orphan"}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing url, got %v", err)
	}
}

func TestIngestPagesRejectsBatchBeforePublishing(t *testing.T) {
	queue := &queueFake{}
	uc := NewIngestPagesUseCase(blankLineExtractor{}, passthroughChunker{}, queue)

	_, err := uc.IngestPages(context.Background(), []domain.Page{
		{SourceURL: "https://example.com/boost", Paragraphs: []string{"Boost is a drink."}},
		{SourceURL: "  ", Paragraphs: []string{"Orphan paragraph."}},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected nothing published for a rejected batch, got %d chunks", len(queue.published))
	}
}

func TestIngestPagesQueueError(t *testing.T) {
	uc := NewIngestPagesUseCase(blankLineExtractor{}, passthroughChunker{}, &queueFake{err: errors.New("nats down")})

	_, err := uc.IngestPages(context.Background(), []domain.Page{{SourceURL: "https://example.com", Text: "hello"}})
	if !domain.IsKind(err, domain.ErrQueueUnavailable) {
		t.Fatalf("expected ErrQueueUnavailable, got %v", err)
	}
}
