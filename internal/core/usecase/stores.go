package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const (
	earthRadiusKm   = 6371.0
	defaultRadiusKm = 20.0
)

// StoreLocator filters the store dataset by product and great-circle distance.
type StoreLocator struct {
	catalog ports.StoreCatalog
	lexicon *lexicon.Lexicon
	timeout time.Duration
}

func NewStoreLocator(catalog ports.StoreCatalog, lx *lexicon.Lexicon, timeout time.Duration) *StoreLocator {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &StoreLocator{catalog: catalog, lexicon: lx, timeout: timeout}
}

// Locate returns matching stores nearest first.
func (uc *StoreLocator) Locate(ctx context.Context, q domain.StoreQuery) (*domain.StoreResult, error) {
	product, err := uc.resolveProduct(q)
	if err != nil {
		return nil, err
	}
	if err := validateCoordinates(q.Lat, q.Lng); err != nil {
		return nil, err
	}
	radius := q.RadiusKm
	if radius <= 0 {
		radius = defaultRadiusKm
	}

	callCtx, cancel := withOptionalTimeout(ctx, uc.timeout)
	defer cancel()
	stores, err := uc.catalog.ListStores(callCtx)
	if err != nil {
		return nil, wrapKind(domain.ErrStoreDataUnavailable, "list stores", err)
	}

	needle := lexicon.Fold(product)
	matches := make([]domain.StoreMatch, 0)
	for _, store := range stores {
		matched, ok := firstMatchingProduct(store.Products, needle)
		if !ok {
			continue
		}
		distance := Haversine(q.Lat, q.Lng, store.Lat, store.Lng)
		if distance > radius {
			continue
		}
		matches = append(matches, domain.StoreMatch{
			Name:       store.Name,
			Address:    store.Address,
			City:       store.City,
			Lat:        store.Lat,
			Lng:        store.Lng,
			DistanceKm: distance,
			Products:   []domain.Product{matched},
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Name < matches[j].Name
	})

	result := &domain.StoreResult{Stores: matches}
	if strings.TrimSpace(q.Product) == "" {
		result.MatchedProduct = product
	}
	return result, nil
}

func (uc *StoreLocator) resolveProduct(q domain.StoreQuery) (string, error) {
	if product := strings.TrimSpace(q.Product); product != "" {
		return product, nil
	}
	if strings.TrimSpace(q.Query) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "locate stores", errors.New("query or product is required"))
	}
	product, ok := uc.lexicon.MatchProduct(q.Query)
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "locate stores", errors.New("no known product found in query"))
	}
	return product, nil
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.WrapError(domain.ErrInvalidInput, "locate stores", fmt.Errorf("coordinates out of range: %v,%v", lat, lng))
	}
	return nil
}

func firstMatchingProduct(products []domain.Product, needle string) (domain.Product, bool) {
	for _, p := range products {
		if strings.Contains(lexicon.Fold(p.Name), needle) {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
