package resolver

import (
	"cmp"
	"slices"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Rank clamps every candidate and orders them by confidence, then official
// programs first, then commission, then cookie length, then name. It does not
// modify its input.
func Rank(candidates []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c.Clamped()
	}

	slices.SortStableFunc(out, compareCandidates)
	return out
}

func compareCandidates(a, b domain.Candidate) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	if a.IsOfficial != b.IsOfficial {
		if a.IsOfficial {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.CommissionRate, a.CommissionRate); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CookieDays, a.CookieDays); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}
