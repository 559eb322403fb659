package paint

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"
)

func TestBuildQuery(t *testing.T) {
	base := `SELECT ` + paintColumns + ` FROM paint_products`

	tests := []struct {
		name     string
		f        Filter
		wantSQL  string
		wantArgs []any
	}{
		{"no filter", Filter{}, base, nil},
		{"brand", Filter{Brand: "Flexa"}, base + ` WHERE brand = $1`, []any{"Flexa"}},
		{
			"all fields",
			Filter{Brand: "Flexa", Finish: "matt", Popular: Bool(true), InStock: Bool(false)},
			base + ` WHERE brand = $1 AND finish = $2 AND popular = $3 AND in_stock = $4`,
			[]any{"Flexa", "matt", true, false},
		},
		{"in stock only", Filter{InStock: Bool(true)}, base + ` WHERE in_stock = $1`, []any{true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := buildQuery(tt.f)
			if got := sqlx.Rebind(sqlx.DOLLAR, q); got != tt.wantSQL {
				t.Errorf("sql:\n got %s\nwant %s", got, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args: got %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

// TestPostgresStore runs against a real database when PAINT_MCP_TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PAINT_MCP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PAINT_MCP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `DELETE FROM paint_products`); err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}
	if err := store.Upsert(ctx, testCatalog()); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Query(ctx, Filter{Brand: "Histor"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Query: got %d records, want 2", len(got))
	}

	r, err := store.Get(ctx, "p4")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.ColorName != "Warm Sand" || !r.Popular {
		t.Errorf("Get: got %+v", r)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrPaintNotFound) {
		t.Errorf("expected ErrPaintNotFound, got %v", err)
	}

	brands, err := NewService(store, nil).Brands(ctx)
	if err != nil {
		t.Fatalf("Brands failed: %v", err)
	}
	if len(brands) != 3 || brands[0].Name != "Alabastine" {
		t.Errorf("Brands: got %+v", brands)
	}

	resp, err := NewService(store, nil).MatchColor(ctx, "#8c8c8c", DefaultMatchOptions())
	if err != nil {
		t.Fatalf("MatchColor failed: %v", err)
	}
	if resp.TotalMatches == 0 || resp.Matches[0].ID != "p2" {
		t.Errorf("MatchColor: got %+v", resp.Matches)
	}
}
