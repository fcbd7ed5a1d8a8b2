// Package localfs serves the store dataset from a JSON or XLSX file on disk.
package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

// StoreFile re-reads the dataset only when the file's modification time changes.
type StoreFile struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	stores  []domain.Store
}

func NewStoreFile(path string) (*StoreFile, error) {
	if path == "" {
		path = "./data/stores.json"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".xlsx":
	default:
		return nil, fmt.Errorf("unsupported store dataset format: %s", path)
	}
	return &StoreFile{path: path}, nil
}

func (s *StoreFile) ListStores(_ context.Context) ([]domain.Store, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "stat store dataset", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stores != nil && info.ModTime().Equal(s.modTime) {
		return s.stores, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "open store dataset", err)
	}
	defer f.Close()

	var stores []domain.Store
	if strings.EqualFold(filepath.Ext(s.path), ".xlsx") {
		stores, err = DecodeStoresXLSX(f)
	} else {
		stores, err = DecodeStoresJSON(f)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "decode store dataset", err)
	}

	s.stores = stores
	s.modTime = info.ModTime()
	return stores, nil
}

func DecodeStoresJSON(r io.Reader) ([]domain.Store, error) {
	var stores []domain.Store
	if err := json.NewDecoder(r).Decode(&stores); err != nil {
		return nil, fmt.Errorf("decode stores json: %w", err)
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	return stores, nil
}

var xlsxColumns = []string{"name", "address", "city", "lat", "lng", "product", "price"}

// DecodeStoresXLSX reads the first sheet. Each row is one product offer; rows
// sharing name and address fold into one store. A row without a product
// still declares the store.
func DecodeStoresXLSX(r io.Reader) ([]domain.Store, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return []domain.Store{}, nil
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []domain.Store{}, nil
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	stores := make([]domain.Store, 0)
	position := make(map[string]int)
	for rowNum, row := range rows[1:] {
		cell := func(column string) string {
			i := index[column]
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := cell("name")
		if name == "" {
			continue
		}
		key := strings.ToLower(name) + "|" + strings.ToLower(cell("address"))
		pos, ok := position[key]
		if !ok {
			lat, err := parseFloat(cell("lat"))
			if err != nil {
				return nil, fmt.Errorf("row %d: lat: %w", rowNum+2, err)
			}
			lng, err := parseFloat(cell("lng"))
			if err != nil {
				return nil, fmt.Errorf("row %d: lng: %w", rowNum+2, err)
			}
			stores = append(stores, domain.Store{
				Name:    name,
				Address: cell("address"),
				City:    cell("city"),
				Lat:     lat,
				Lng:     lng,
			})
			pos = len(stores) - 1
			position[key] = pos
		}

		product := cell("product")
		if product == "" {
			continue
		}
		price := 0.0
		if raw := cell("price"); raw != "" {
			if price, err = parseFloat(raw); err != nil {
				return nil, fmt.Errorf("row %d: price: %w", rowNum+2, err)
			}
		}
		stores[pos].Products = append(stores[pos].Products, domain.Product{Name: product, Price: price})
	}
	return stores, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(xlsxColumns))
	for _, column := range xlsxColumns {
		index[column] = -1
	}
	for i, raw := range header {
		column := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := index[column]; ok {
			index[column] = i
		}
	}
	for _, required := range []string{"name", "lat", "lng"} {
		if index[required] < 0 {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return index, nil
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}
