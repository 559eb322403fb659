// Package paint holds the paint product catalog and the nearest-color search
// over it.
//
// # Catalog
//
// A Store answers equality-filtered queries (brand, finish, popular, in stock)
// and returns unordered record sets. Three implementations exist:
//   - MemoryStore: an immutable in-memory snapshot
//   - LoadFile: a YAML or JSON catalog file read into a MemoryStore
//   - PostgresStore: the paint_products table via sqlx
//
// Service layers ordering, pagination, and search on top of a Store.
//
// # Matching
//
// Match ranks in-stock records by colormath.WeightedDistance to a target hex
// color. The weights (2, 4, 3 for red, green, blue) are reproduced exactly so
// results agree with previously published matches, even though they differ
// from the usual perceptual weighting. Each result also carries a CIEDE2000
// DeltaE for display; it never affects ranking.
//
// The catalog slice passed to Match is only read, so one snapshot may be
// shared by concurrent calls.
package paint
