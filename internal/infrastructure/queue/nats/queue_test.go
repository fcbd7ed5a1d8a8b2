package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/resilience"
)

func TestChunkMessageRoundTrip(t *testing.T) {
	in := domain.ChunkInput{
		ID:         "7d0c1f2e",
		Content:    "Aero is a bubbly chocolate bar.",
		SourceURL:  "https://example.com/aero",
		ChunkIndex: 2,
		ScrapedAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := encodeChunk(in)
	if err != nil {
		t.Fatalf("encodeChunk() error = %v", err)
	}
	out, err := decodeChunk(data)
	if err != nil {
		t.Fatalf("decodeChunk() error = %v", err)
	}
	if out.ID != in.ID || out.ChunkIndex != 2 || !out.ScrapedAt.Equal(in.ScrapedAt) {
		t.Fatalf("unexpected chunk %+v", out)
	}
}

func TestDecodeChunkRejectsIncompleteMessages(t *testing.T) {
	for _, raw := range []string{`not json`, `{"id":"x"}`, `{"content":"text"}`} {
		if _, err := decodeChunk([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestEncodeChunkRequiresID(t *testing.T) {
	if _, err := encodeChunk(domain.ChunkInput{Content: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if got := classifyNATSError(nats.ErrNoServers); !got.Retryable || !got.RecordFailure {
		t.Fatalf("no servers should be retryable: %+v", got)
	}
	if got := classifyNATSError(context.Canceled); got.Retryable || got.RecordFailure {
		t.Fatalf("canceled should be ignored: %+v", got)
	}
	if got := classifyNATSError(errors.New("bad subject")); got.Retryable {
		t.Fatalf("plain error should not be retryable: %+v", got)
	}
}

func TestPublishFailuresMarkedTemporary(t *testing.T) {
	err := resilience.MarkTemporary("nats publish", nats.ErrTimeout, classifyNATSError)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	plain := errors.New("permissions violation")
	if got := resilience.MarkTemporary("nats publish", plain, classifyNATSError); got != plain {
		t.Fatalf("expected plain error passthrough, got %v", got)
	}
}
