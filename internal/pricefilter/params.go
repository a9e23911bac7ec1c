package pricefilter

import "fmt"

// Params holds every constant the anomaly filter uses. Pick one profile
// and pass it everywhere; the API, the aggregator and the CLI all share it.
type Params struct {
	// Bound checks
	IQRMultiplier         float64
	MedianLowerMultiplier float64
	MedianUpperMultiplier float64
	StdDevMultiplier      float64
	MinPrice              float64

	// Jump filter
	JumpFilter   bool
	JumpMinRatio float64
	JumpMaxRatio float64

	// Below MinPoints observations no statistics are computed.
	MinPoints int
}

const (
	ProfileDefault = "default"
	ProfileStrict  = "strict"
)

// DefaultParams is the canonical profile: 2.5 IQR, 0.2x-4x median,
// 3 sigma, and a [0.25, 3.0] jump window.
var DefaultParams = Params{
	IQRMultiplier:         2.5,
	MedianLowerMultiplier: 0.2,
	MedianUpperMultiplier: 4.0,
	StdDevMultiplier:      3,
	MinPrice:              0.01,
	JumpFilter:            true,
	JumpMinRatio:          0.25,
	JumpMaxRatio:          3.0,
	MinPoints:             3,
}

// StrictParams narrows the median window to 0.3x-3x.
var StrictParams = Params{
	IQRMultiplier:         2.5,
	MedianLowerMultiplier: 0.3,
	MedianUpperMultiplier: 3.0,
	StdDevMultiplier:      3,
	MinPrice:              0.01,
	JumpFilter:            true,
	JumpMinRatio:          0.25,
	JumpMaxRatio:          3.0,
	MinPoints:             3,
}

// Profile returns the named parameter set.
func Profile(name string) (Params, error) {
	switch name {
	case "", ProfileDefault:
		return DefaultParams, nil
	case ProfileStrict:
		return StrictParams, nil
	default:
		return Params{}, fmt.Errorf("unknown filter profile %q, expected %s|%s", name, ProfileDefault, ProfileStrict)
	}
}
