package paint

// PaintRecord is a catalog entry. Records are read-only once fetched.
type PaintRecord struct {
	ID        string  `json:"id" db:"id" yaml:"id"`
	Brand     string  `json:"brand" db:"brand" yaml:"brand"`
	ColorName string  `json:"colorName" db:"color_name" yaml:"color_name"`
	ColorCode string  `json:"colorCode" db:"color_code" yaml:"color_code"`
	HexColor  string  `json:"hexColor" db:"hex_color" yaml:"hex_color"`
	Finish    string  `json:"finish" db:"finish" yaml:"finish"`
	Coverage  float64 `json:"coverage" db:"coverage" yaml:"coverage"` // m² per litre
	Price     float64 `json:"price" db:"price" yaml:"price"`
	InStock   bool    `json:"inStock" db:"in_stock" yaml:"in_stock"`
	Popular   bool    `json:"popular" db:"popular" yaml:"popular"`
}

// MatchResult is a catalog record ranked against a target color.
type MatchResult struct {
	PaintRecord

	// Distance is the weighted RGB distance to the target.
	Distance float64 `json:"distance"`

	// MatchScore is 100 for an exact match, falling linearly to 0 at MaxDistance.
	MatchScore float64 `json:"matchScore"`

	// DeltaE is the CIEDE2000 difference, informational only.
	DeltaE float64 `json:"deltaE"`
}

// Brand is a brand name with its number of catalog entries.
type Brand struct {
	Name         string `json:"name" db:"name"`
	ProductCount int    `json:"productCount" db:"product_count"`
}
