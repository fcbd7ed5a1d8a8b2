package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

type IngestPagesUseCase struct {
	extractor ports.ParagraphExtractor
	chunker   ports.Chunker
	queue     ports.MessageQueue
	now       func() time.Time
}

func NewIngestPagesUseCase(
	extractor ports.ParagraphExtractor,
	chunker ports.Chunker,
	queue ports.MessageQueue,
) *IngestPagesUseCase {
	return &IngestPagesUseCase{
		extractor: extractor,
		chunker:   chunker,
		queue:     queue,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestPagesUseCase) IngestPages(ctx context.Context, pages []domain.Page) (*domain.IngestReport, error) {
	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest pages", errors.New("no pages supplied"))
	}

	// A bad page rejects the batch before anything is published.
	batches := make([][]domain.ChunkInput, 0, len(pages))
	for _, page := range pages {
		chunks, err := uc.chunkPage(page)
		if err != nil {
			return nil, err
		}
		batches = append(batches, chunks)
	}

	report := &domain.IngestReport{ChunkIDs: []string{}}
	for _, chunks := range batches {
		for _, chunk := range chunks {
			if err := uc.queue.PublishChunk(ctx, chunk); err != nil {
				return nil, wrapKind(domain.ErrQueueUnavailable, "publish chunk", err)
			}
			report.ChunkIDs = append(report.ChunkIDs, chunk.ID)
		}
		report.Pages++
		report.Chunks += len(chunks)
	}
	return report, nil
}

func (uc *IngestPagesUseCase) chunkPage(page domain.Page) ([]domain.ChunkInput, error) {
	sourceURL := strings.TrimSpace(page.SourceURL)
	if sourceURL == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest pages", errors.New("sourceUrl is required"))
	}

	paragraphs := page.Paragraphs
	if len(paragraphs) == 0 {
		paragraphs = uc.extractor.Paragraphs(page.Text)
	}

	scrapedAt := page.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = uc.now()
	}
	queuedAt := uc.now()

	texts := uc.chunker.Pack(paragraphs)
	chunks := make([]domain.ChunkInput, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.ChunkInput{
			ID:         ChunkID(sourceURL, i),
			Content:    text,
			SourceURL:  sourceURL,
			ChunkIndex: i,
			ScrapedAt:  scrapedAt,
			QueuedAt:   queuedAt,
		})
	}
	return chunks, nil
}

// ChunkID is stable per (sourceUrl, chunkIndex) so re-ingesting a page
// overwrites its previous chunks instead of duplicating them.
func ChunkID(sourceURL string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", sourceURL, chunkIndex))).String()
}
