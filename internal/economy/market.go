// Package economy provides periodic entity reports and market conditions.
package economy

import (
	"hash/fnv"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Market demand swings within ±15% of baseline.
const (
	marketFloor = 0.85
	marketSpan  = 0.30
)

// marketStep is the noise-space distance between consecutive periods.
// Small enough that neighbouring months stay correlated.
const marketStep = 0.35

// MarketIndex returns the deterministic demand multiplier for an entity at a
// given period. The same seed and period always produce the same index.
func MarketIndex(seed string, period int) float64 {
	noise := opensimplex.NewNormalized(seedFor(seed))
	// Normalized noise lies in [0, 1).
	n := noise.Eval2(float64(period)*marketStep, 0.5)
	return marketFloor + marketSpan*n
}

func seedFor(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
