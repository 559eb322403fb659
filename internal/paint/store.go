package paint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrPaintNotFound is returned by Get when no record has the requested id.
var ErrPaintNotFound = errors.New("paint product not found")

// Filter selects records by equality. Zero-valued fields do not filter.
type Filter struct {
	Brand   string
	Finish  string
	Popular *bool
	InStock *bool
}

// Bool returns a pointer to b, for Filter fields.
func Bool(b bool) *bool { return &b }

// Matches reports whether rec satisfies every set field of f.
func (f Filter) Matches(rec PaintRecord) bool {
	if f.Brand != "" && rec.Brand != f.Brand {
		return false
	}
	if f.Finish != "" && rec.Finish != f.Finish {
		return false
	}
	if f.Popular != nil && rec.Popular != *f.Popular {
		return false
	}
	if f.InStock != nil && rec.InStock != *f.InStock {
		return false
	}
	return true
}

// Store is the catalog query surface. Result order is unspecified.
type Store interface {
	Query(ctx context.Context, f Filter) ([]PaintRecord, error)
	Get(ctx context.Context, id string) (*PaintRecord, error)
}

// MemoryStore is an immutable in-memory catalog. It is safe for concurrent use.
type MemoryStore struct {
	records []PaintRecord
	byID    map[string]int
}

// NewMemoryStore copies records into a new store. Later duplicates of an id
// shadow earlier ones for Get.
func NewMemoryStore(records []PaintRecord) *MemoryStore {
	s := &MemoryStore{
		records: append([]PaintRecord(nil), records...),
		byID:    make(map[string]int, len(records)),
	}
	for i, rec := range s.records {
		s.byID[rec.ID] = i
	}
	return s
}

// Query returns a fresh slice of matching records in catalog order.
func (s *MemoryStore) Query(ctx context.Context, f Filter) ([]PaintRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]PaintRecord, 0, len(s.records))
	for _, rec := range s.records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get returns a copy of the record with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*PaintRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPaintNotFound, id)
	}
	rec := s.records[i]
	return &rec, nil
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	return len(s.records)
}

type catalogFile struct {
	Paints []PaintRecord `json:"paints" yaml:"paints"`
}

// LoadFile reads a catalog from a .yaml, .yml, or .json file. The document is
// either a list of paints or an object with a "paints" list.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	records, err := parseCatalog(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return NewMemoryStore(records), nil
}

func parseCatalog(data []byte, ext string) ([]PaintRecord, error) {
	var unmarshal func([]byte, any) error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	default:
		return nil, fmt.Errorf("unsupported catalog extension %q", ext)
	}

	var list []PaintRecord
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc catalogFile
	if err := unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Paints, nil
}
