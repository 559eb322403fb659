package paint

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
)

// ErrInvalidOptions is returned for negative or NaN paging and match limits.
var ErrInvalidOptions = errors.New("invalid options")

const (
	// DefaultMaxResults is the number of matches returned when unspecified.
	DefaultMaxResults = 5

	// DefaultMaxDistance is the weighted distance cutoff when unspecified.
	DefaultMaxDistance = 100.0
)

// MatchOptions bounds a color match.
type MatchOptions struct {
	// MaxResults truncates the ranked list. Zero yields no matches.
	MaxResults int `json:"maxResults"`

	// MaxDistance excludes records farther than this. Zero keeps exact matches only.
	MaxDistance float64 `json:"maxDistance"`
}

// DefaultMatchOptions returns MaxResults 5 and MaxDistance 100.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{MaxResults: DefaultMaxResults, MaxDistance: DefaultMaxDistance}
}

// Validate rejects negative values and NaN.
func (o MatchOptions) Validate() error {
	if o.MaxResults < 0 {
		return fmt.Errorf("%w: maxResults must be >= 0, got %d", ErrInvalidOptions, o.MaxResults)
	}
	if math.IsNaN(o.MaxDistance) || o.MaxDistance < 0 {
		return fmt.Errorf("%w: maxDistance must be >= 0, got %v", ErrInvalidOptions, o.MaxDistance)
	}
	return nil
}

// MatchResponse is the ranked outcome of Match.
type MatchResponse struct {
	RequestedColor string        `json:"requestedColor"`
	Matches        []MatchResult `json:"matches"`
	TotalMatches   int           `json:"totalMatches"`
}

// Match ranks the in-stock records of catalog by weighted distance to target.
//
// Records with an unparsable hex color are never matched. Ties keep catalog
// order. An empty catalog gives an empty response, not an error.
//
// # Errors
//
//   - colormath.ErrInvalidColorFormat if target is unparsable
//   - ErrInvalidOptions if opts fails Validate
func Match(target string, catalog []PaintRecord, opts MatchOptions) (*MatchResponse, error) {
	want, err := colormath.HexToRGB(target)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	type candidate struct {
		rec  PaintRecord
		rgb  colormath.RGB
		dist float64
	}

	var kept []candidate
	for _, rec := range catalog {
		if !rec.InStock {
			continue
		}
		rgb, err := colormath.HexToRGB(rec.HexColor)
		if err != nil {
			continue
		}
		d := colormath.WeightedDistance(want, rgb)
		if d > opts.MaxDistance {
			continue
		}
		kept = append(kept, candidate{rec: rec, rgb: rgb, dist: d})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].dist < kept[j].dist
	})
	if len(kept) > opts.MaxResults {
		kept = kept[:opts.MaxResults]
	}

	matches := make([]MatchResult, 0, len(kept))
	for _, c := range kept {
		matches = append(matches, MatchResult{
			PaintRecord: c.rec,
			Distance:    c.dist,
			MatchScore:  matchScore(c.dist, opts.MaxDistance),
			DeltaE:      colormath.DeltaE(want, c.rgb),
		})
	}

	return &MatchResponse{
		RequestedColor: want.Hex(),
		Matches:        matches,
		TotalMatches:   len(matches),
	}, nil
}

func matchScore(dist, maxDist float64) float64 {
	if maxDist == 0 {
		// only exact matches survive the cutoff
		return 100
	}
	return math.Max(0, 100-(dist/maxDist)*100)
}
