// Package ranking elects the source-of-truth for each duplicate group:
// higher quality tier wins, then larger size, then older mtime, then
// smallest path as a deterministic final tie-breaker. Derived directly
// from spec text; the teacher repo has no direct equivalent since
// backup tooling has no notion of "best" duplicate.
package ranking

import "photocore/internal/domain"

// Elect returns the id of the best member of members by (tier, size,
// mtime, path) lexicographic comparison. members must be non-empty.
func Elect(members []domain.PhotoRecord) int64 {
	best := members[0]
	for _, m := range members[1:] {
		if better(m, best) {
			best = m
		}
	}
	return best.ID
}

// better reports whether a outranks b as source-of-truth.
func better(a, b domain.PhotoRecord) bool {
	if ta, tb := a.Format.QualityTier(), b.Format.QualityTier(); ta != tb {
		return ta > tb
	}
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	if a.MTime != b.MTime {
		return a.MTime < b.MTime
	}
	return a.Path < b.Path
}
