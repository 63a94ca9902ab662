package matching

import (
	"sort"

	"photocore/internal/domain"
	"photocore/internal/hasher"
)

// idSet is a small set-of-ids helper; groups are always represented
// this way rather than as live object graphs, per the "derived, never
// owned" discipline for group/photo references.
type idSet map[int64]bool

func newIDSet(ids ...int64) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func (s idSet) slice() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s idSet) intersects(o idSet) bool {
	for id := range s {
		if o[id] {
			return true
		}
	}
	return false
}

func (s idSet) exclusiveOf(o idSet) []int64 {
	var out []int64
	for id := range s {
		if !o[id] {
			out = append(out, id)
		}
	}
	return out
}

// group is the matcher's working representation of a candidate or
// final duplicate set.
type group struct {
	members    idSet
	confidence domain.Confidence
}

// FindDuplicates runs the four-phase pipeline over all photo records
// and returns the final partition of duplicate groups. Confidence
// reflects the weakest evidence that justified each group's formation
// or merge.
func FindDuplicates(photos []domain.PhotoRecord) []domain.DuplicateGroup {
	byID := make(map[int64]domain.PhotoRecord, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	groups, grouped := phase1ExactMatch(photos)
	p2Groups, p2Grouped := phase2ExifTriangulation(photos, grouped)
	groups = append(groups, p2Groups...)
	for id := range p2Grouped {
		grouped[id] = true
	}

	p3Groups := phase3PerceptualSimilarity(photos, byID, grouped)
	groups = append(groups, p3Groups...)

	groups = phase4TransitiveMerge(groups, byID)

	return toOutput(groups)
}

// phase1ExactMatch groups records sharing the same SHA-256. Confidence
// Certain. Singletons are not groups.
func phase1ExactMatch(photos []domain.PhotoRecord) ([]*group, idSet) {
	bySHA := map[string][]int64{}
	for _, p := range photos {
		if p.SHA256 == "" {
			continue
		}
		bySHA[p.SHA256] = append(bySHA[p.SHA256], p.ID)
	}

	var groups []*group
	grouped := idSet{}
	for _, ids := range bySHA {
		if len(ids) < 2 {
			continue
		}
		g := &group{members: newIDSet(ids...), confidence: domain.ConfidenceCertain}
		groups = append(groups, g)
		for _, id := range ids {
			grouped[id] = true
		}
	}
	return groups, grouped
}

type exifKey struct {
	capturedAt int64
	camera     string
}

// phase2ExifTriangulation clusters ungrouped records by (captured_at,
// camera_model), then applies the strict pHash retention filter.
func phase2ExifTriangulation(photos []domain.PhotoRecord, alreadyGrouped idSet) ([]*group, idSet) {
	byID := make(map[int64]domain.PhotoRecord, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	clusters := map[exifKey][]int64{}
	for _, p := range photos {
		if alreadyGrouped[p.ID] {
			continue
		}
		if p.Exif.CapturedAt == nil || p.Exif.CameraModel == nil {
			continue
		}
		key := exifKey{capturedAt: p.Exif.CapturedAt.Unix(), camera: *p.Exif.CameraModel}
		clusters[key] = append(clusters[key], p.ID)
	}

	var groups []*group
	grouped := idSet{}
	for _, ids := range clusters {
		if len(ids) < 2 {
			continue
		}

		var retained []int64
		for _, id := range ids {
			m := byID[id]
			if m.AHash == nil {
				retained = append(retained, id) // hash-less, kept on EXIF evidence
				continue
			}
			otherHashBearing := 0
			validated := false
			for _, otherID := range ids {
				if otherID == id {
					continue
				}
				other := byID[otherID]
				if other.AHash == nil {
					continue
				}
				otherHashBearing++
				if hasher.HammingDistance(*m.AHash, *other.AHash) <= NearCertainThreshold {
					validated = true
					break
				}
			}
			// No hash-bearing peer to contradict this member: nothing
			// to validate against, so the filter can't reject it.
			if validated || otherHashBearing == 0 {
				retained = append(retained, id)
			}
		}

		if len(retained) < 2 {
			continue
		}

		hasHashless := false
		for _, id := range retained {
			if byID[id].AHash == nil {
				hasHashless = true
				break
			}
		}
		confidence := domain.ConfidenceHigh
		if hasHashless {
			confidence = domain.ConfidenceNearCertain
		}

		g := &group{members: newIDSet(retained...), confidence: confidence}
		groups = append(groups, g)
		for _, id := range retained {
			grouped[id] = true
		}
	}

	return groups, grouped
}

// phase3PerceptualSimilarity builds a BK-tree over all hash-bearing
// records (including those already grouped) and connects currently
// ungrouped records to their perceptually-similar neighbors.
func phase3PerceptualSimilarity(photos []domain.PhotoRecord, byID map[int64]domain.PhotoRecord, grouped idSet) []*group {
	tree := newBKTree()
	for _, p := range photos {
		if p.AHash != nil {
			tree.insert(p.ID, *p.AHash)
		}
	}

	type validatedEdge struct {
		a, b       int64
		confidence domain.Confidence
	}
	uf := newUnionFind()
	var edges []validatedEdge

	for _, p := range photos {
		if grouped[p.ID] || p.AHash == nil || p.DHash == nil {
			continue
		}
		candidates := tree.findWithin(*p.AHash, ProbableThreshold)
		for _, candID := range candidates {
			if candID == p.ID {
				continue
			}
			cand := byID[candID]
			accept, aDist := validateDualHashConsensus(p, cand, ProbableThreshold)
			if !accept {
				continue
			}
			if sequentialShot(p, cand) {
				continue
			}
			conf, ok := confidenceFromHammingDistance(aDist)
			if !ok {
				continue
			}
			uf.union(p.ID, candID)
			edges = append(edges, validatedEdge{a: p.ID, b: candID, confidence: conf})
		}
	}

	componentConfidence := map[int64]domain.Confidence{}
	for _, e := range edges {
		root := uf.find(e.a)
		if existing, ok := componentConfidence[root]; ok {
			componentConfidence[root] = domain.CombineConfidence(existing, e.confidence)
		} else {
			componentConfidence[root] = e.confidence
		}
	}

	components := uf.components()
	var groups []*group
	for root, ids := range components {
		if len(ids) < 2 {
			continue
		}
		conf, ok := componentConfidence[root]
		if !ok {
			conf = domain.ConfidenceProbable
		}
		groups = append(groups, &group{members: newIDSet(ids...), confidence: conf})
	}
	return groups
}

// validateDualHashConsensus implements the dual-hash acceptance rule:
// both hashes within threshold when both sides have dHash; otherwise
// accept only under the stricter High threshold on aHash alone.
func validateDualHashConsensus(a, b domain.PhotoRecord, threshold int) (accept bool, aDist int) {
	if a.AHash == nil || b.AHash == nil {
		return false, 0
	}
	aDist = hasher.HammingDistance(*a.AHash, *b.AHash)
	if a.DHash != nil && b.DHash != nil {
		dDist := hasher.HammingDistance(*a.DHash, *b.DHash)
		if aDist <= threshold && dDist <= threshold {
			return true, aDist
		}
		return false, 0
	}
	if aDist <= HighThreshold {
		return true, aDist
	}
	return false, 0
}

// sequentialShot rejects bursts: same camera, both timestamped, within
// (0, 60] seconds of each other. Identical timestamps do not trigger
// this filter.
func sequentialShot(a, b domain.PhotoRecord) bool {
	if a.Exif.CameraModel == nil || b.Exif.CameraModel == nil {
		return false
	}
	if *a.Exif.CameraModel != *b.Exif.CameraModel {
		return false
	}
	if a.Exif.CapturedAt == nil || b.Exif.CapturedAt == nil {
		return false
	}
	diff := a.Exif.CapturedAt.Unix() - b.Exif.CapturedAt.Unix()
	if diff < 0 {
		diff = -diff
	}
	return diff > 0 && diff <= 60
}

// phase4TransitiveMerge resolves the overlap graph between all groups
// produced so far, merging adjacent groups validated by an exclusive
// cross-group pair and breaking unvalidated bridges by dropping the
// shared member from the weaker group.
func phase4TransitiveMerge(groups []*group, byID map[int64]domain.PhotoRecord) []*group {
	for {
		components := overlapComponents(groups)
		progressed := false

		for _, comp := range components {
			if len(comp) < 2 {
				continue
			}
			progressed = true
			groups = resolveComponent(groups, comp, byID)
			break // membership changed; recompute overlap graph fresh
		}

		if !progressed {
			break
		}
	}

	// drop groups that fell below 2 members during bridge-breaking
	var out []*group
	for _, g := range groups {
		if len(g.members) >= 2 {
			out = append(out, g)
		}
	}
	return out
}

// overlapComponents returns the connected components of the
// group-overlap graph (groups sharing >=1 member are adjacent), as
// lists of indices into groups.
func overlapComponents(groups []*group) [][]int {
	n := len(groups)
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if groups[i].members.intersects(groups[j].members) {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var components [][]int
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		var comp []int
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			for _, nb := range adj[cur] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}

// resolveComponent processes every directly-overlapping pair of
// groups within one connected component: merging pairs validated by
// an exclusive cross-group high-confidence match, and otherwise
// dropping the shared members from the weaker-confidence group.
func resolveComponent(groups []*group, comp []int, byID map[int64]domain.PhotoRecord) []*group {
	removed := map[int]bool{}
	var merges []*group

	for a := 0; a < len(comp); a++ {
		for b := a + 1; b < len(comp); b++ {
			gi, gj := comp[a], comp[b]
			if removed[gi] || removed[gj] {
				continue
			}
			G, Gp := groups[gi], groups[gj]
			if !G.members.intersects(Gp.members) {
				continue
			}

			exclusiveG := G.members.exclusiveOf(Gp.members)
			exclusiveGp := Gp.members.exclusiveOf(G.members)

			validated := false
			for _, m := range exclusiveG {
				for _, mp := range exclusiveGp {
					accept, aDist := validateDualHashConsensus(byID[m], byID[mp], HighThreshold)
					if accept && aDist <= HighThreshold {
						validated = true
						break
					}
				}
				if validated {
					break
				}
			}

			if validated {
				newMembers := idSet{}
				for id := range G.members {
					newMembers[id] = true
				}
				for id := range Gp.members {
					newMembers[id] = true
				}
				merges = append(merges, &group{members: newMembers, confidence: domain.CombineConfidence(G.confidence, Gp.confidence)})
				removed[gi] = true
				removed[gj] = true
			} else {
				weaker, stronger := G, Gp
				if G.confidence > Gp.confidence {
					weaker, stronger = Gp, G
				}
				for id := range weaker.members {
					if stronger.members[id] {
						delete(weaker.members, id)
					}
				}
			}
		}
	}

	var out []*group
	for i, g := range groups {
		if removed[i] {
			continue
		}
		out = append(out, g)
	}
	out = append(out, merges...)
	return out
}

func toOutput(groups []*group) []domain.DuplicateGroup {
	out := make([]domain.DuplicateGroup, 0, len(groups))
	var nextID int64 = 1
	for _, g := range groups {
		if len(g.members) < 2 {
			continue
		}
		out = append(out, domain.DuplicateGroup{
			ID:         nextID,
			Confidence: g.confidence,
			MemberIDs:  g.members.slice(),
		})
		nextID++
	}
	return out
}
