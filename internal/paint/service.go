package paint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// ErrQueryTooShort is returned by Search for queries under MinSearchLength characters.
var ErrQueryTooShort = errors.New("search query too short")

const (
	DefaultListLimit    = 50
	DefaultPopularLimit = 10
	DefaultSearchLimit  = 20
	MinSearchLength     = 2
)

// brandCounter is implemented by stores that can aggregate brands themselves.
type brandCounter interface {
	Brands(ctx context.Context) ([]Brand, error)
}

// ListOptions filters and pages Service.List. A nil Limit means DefaultListLimit.
type ListOptions struct {
	Brand   string
	Finish  string
	Popular bool
	Limit   *int
	Offset  int
}

// Service answers catalog queries over a Store.
type Service struct {
	store  Store
	logger hclog.Logger
}

// NewService creates a service. A nil logger discards output.
func NewService(store Store, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{store: store, logger: logger}
}

// List returns records ordered popular first, then by brand and color name.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]PaintRecord, error) {
	limit := DefaultListLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if limit < 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must be >= 0", ErrInvalidOptions)
	}

	f := Filter{Brand: opts.Brand, Finish: opts.Finish}
	if opts.Popular {
		f.Popular = Bool(true)
	}
	recs, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Popular != b.Popular {
			return a.Popular
		}
		if a.Brand != b.Brand {
			return a.Brand < b.Brand
		}
		return a.ColorName < b.ColorName
	})
	return page(recs, opts.Offset, limit), nil
}

// Get returns one record or an error wrapping ErrPaintNotFound.
func (s *Service) Get(ctx context.Context, id string) (*PaintRecord, error) {
	return s.store.Get(ctx, id)
}

// Popular returns popular in-stock records ordered by brand and color name.
func (s *Service) Popular(ctx context.Context, limit int) ([]PaintRecord, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", ErrInvalidOptions)
	}
	recs, err := s.store.Query(ctx, Filter{Popular: Bool(true), InStock: Bool(true)})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Brand != recs[j].Brand {
			return recs[i].Brand < recs[j].Brand
		}
		return recs[i].ColorName < recs[j].ColorName
	})
	return page(recs, 0, limit), nil
}

// Brands returns every brand with its product count, ordered by name.
func (s *Service) Brands(ctx context.Context) ([]Brand, error) {
	if bc, ok := s.store.(brandCounter); ok {
		return bc.Brands(ctx)
	}

	recs, err := s.store.Query(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, rec := range recs {
		counts[rec.Brand]++
	}
	out := make([]Brand, 0, len(counts))
	for name, n := range counts {
		out = append(out, Brand{Name: name, ProductCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Search finds in-stock records whose color name, color code, or brand
// contains q, ignoring case. Popular records come first.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]PaintRecord, error) {
	if len([]rune(q)) < MinSearchLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrQueryTooShort, MinSearchLength)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", ErrInvalidOptions)
	}

	recs, err := s.store.Query(ctx, Filter{InStock: Bool(true)})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q)
	hits := recs[:0]
	for _, rec := range recs {
		if strings.Contains(strings.ToLower(rec.ColorName), needle) ||
			strings.Contains(strings.ToLower(rec.ColorCode), needle) ||
			strings.Contains(strings.ToLower(rec.Brand), needle) {
			hits = append(hits, rec)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Popular && !hits[j].Popular
	})
	return page(hits, 0, limit), nil
}

// FetchInStockPaints returns the in-stock catalog snapshot used for matching.
func (s *Service) FetchInStockPaints(ctx context.Context) ([]PaintRecord, error) {
	return s.store.Query(ctx, Filter{InStock: Bool(true)})
}

// MatchColor fetches in-stock paints and ranks them against hex.
func (s *Service) MatchColor(ctx context.Context, hex string, opts MatchOptions) (*MatchResponse, error) {
	catalog, err := s.FetchInStockPaints(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := Match(hex, catalog, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("color matched", "color", resp.RequestedColor, "catalog", len(catalog), "matches", resp.TotalMatches)
	return resp, nil
}

func page(recs []PaintRecord, offset, limit int) []PaintRecord {
	if offset >= len(recs) {
		return []PaintRecord{}
	}
	recs = recs[offset:]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
