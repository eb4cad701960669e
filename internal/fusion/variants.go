package fusion

import (
	"github.com/cespare/xxhash/v2"
)

// Variant is a named weight pair used for A/B experiments.
type Variant struct {
	Name    string  `json:"name"`
	Weights Weights `json:"weights"`
}

// SelectWeights resolves the weight pair for one query. Precedence: an
// explicit override wins, then a deterministic per-user bucket when variants
// are configured, then the fixed default. The returned pair is always
// normalized.
func SelectWeights(override *Weights, userID string, variants []Variant) Weights {
	if override != nil {
		return override.Normalize()
	}
	if userID != "" && len(variants) > 0 {
		v := variants[bucket(userID, len(variants))]
		return v.Weights.Normalize()
	}
	return DefaultWeights()
}

// AssignedVariant returns the variant name a user falls into, for logging and
// experiment analysis. Empty when no variants are configured.
func AssignedVariant(userID string, variants []Variant) string {
	if userID == "" || len(variants) == 0 {
		return ""
	}
	return variants[bucket(userID, len(variants))].Name
}

// bucket maps a user id onto [0, n) deterministically. The same user always
// lands in the same bucket for a fixed variant count.
func bucket(userID string, n int) int {
	return int(xxhash.Sum64String(userID) % uint64(n))
}
