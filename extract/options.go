package extract

// DateOrder resolves numeric dates where both readings are valid, e.g.
// 03/04/2024. It is configuration, not behavior baked into the patterns.
type DateOrder string

const (
	DayFirst   DateOrder = "DMY"
	MonthFirst DateOrder = "MDY"
)

// Options configure locale assumptions for one extractor instance. An
// Extractor holds no other state, so a single instance is safe to share
// across goroutines.
type Options struct {
	DateOrder       DateOrder
	DefaultCurrency string
}

// DefaultOptions assume US-style numeric dates and USD.
func DefaultOptions() Options {
	return Options{
		DateOrder:       MonthFirst,
		DefaultCurrency: "USD",
	}
}
