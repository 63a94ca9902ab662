// Package matching implements the four-phase duplicate detection
// pipeline: exact SHA match, EXIF triangulation, BK-tree perceptual
// similarity, and transitive merge with cross-group visual
// validation. Grounded on
// original_source/crates/core/src/matching/{mod,confidence}.rs;
// Phase 2's strict pHash filter and Phase 4's exclusive-pair
// validation are spec redesigns implemented per spec text rather than
// the looser behavior the original performs.
package matching

import "photocore/internal/domain"

// Hamming-distance gating thresholds on aHash.
const (
	// NearCertainThreshold gates Phase 2's pHash retention filter: a
	// member survives iff within this many bits of another member.
	NearCertainThreshold = 2
	// HighThreshold gates Phase 3's single-hash-missing acceptance and
	// Phase 4's exclusive-pair cross-group validation.
	HighThreshold = 2
	// ProbableThreshold is the broadest radius the Phase 3 BK-tree
	// query accepts candidates within.
	ProbableThreshold = 3
)

// confidenceFromHammingDistance maps an accepted aHash Hamming
// distance to the confidence band Phase 3 assigns to it.
func confidenceFromHammingDistance(d int) (domain.Confidence, bool) {
	switch {
	case d == 0:
		return domain.ConfidenceNearCertain, true
	case d <= HighThreshold:
		return domain.ConfidenceHigh, true
	case d <= ProbableThreshold:
		return domain.ConfidenceProbable, true
	default:
		return domain.ConfidenceLow, false
	}
}
