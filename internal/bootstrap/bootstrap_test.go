package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/vector/memory"
)

func TestNewVectorIndexSelectsBackend(t *testing.T) {
	executor := resilience.NewExecutor(resilience.QueryConfig())

	index, err := newVectorIndex(config.Config{VectorBackend: config.VectorBackendMemory}, executor)
	if err != nil {
		t.Fatalf("newVectorIndex(memory) error = %v", err)
	}
	if _, ok := index.(*memory.Index); !ok {
		t.Fatalf("expected memory index, got %T", index)
	}

	if _, err := newVectorIndex(config.Config{VectorBackend: "faiss"}, executor); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
}

func TestNewStoreCatalogFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stores.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	app := &App{}
	catalog, err := app.newStoreCatalog(context.Background(), config.Config{StoreBackend: config.StoreBackendFile, StoreDataPath: path})
	if err != nil {
		t.Fatalf("newStoreCatalog() error = %v", err)
	}
	if _, ok := catalog.(*localfs.StoreFile); !ok {
		t.Fatalf("expected file catalog, got %T", catalog)
	}

	if _, err := app.newStoreCatalog(context.Background(), config.Config{StoreBackend: "mongo"}); err == nil {
		t.Fatalf("expected error for unsupported store backend")
	}
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	app := &App{}
	app.closeFns = append(app.closeFns, func() { order = append(order, 1) }, func() { order = append(order, 2) })

	app.Close()
	app.Close()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("unexpected close order %v", order)
	}
}
