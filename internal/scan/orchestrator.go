// Package scan implements the two-phase incremental scan orchestrator:
// discovery and mtime-gating, parallel Phase-A (SHA-256 + EXIF),
// SHA-dedup with perceptual-hash cache reuse, parallel Phase-B
// (perceptual hash), a single-threaded persist, and a group rebuild.
// Grounded on the teacher's own scan/backup pipeline shape
// (internal/bt/service.go's sequential-plan/backup/persist ordering)
// generalized to the two explicit parallel phases this domain needs,
// using internal/workerpool in place of the teacher's lack of
// parallelism (BTService backs up files one at a time).
package scan

import (
	"os"
	"sort"

	"github.com/google/uuid"

	"photocore/internal/catalog"
	"photocore/internal/corerr"
	"photocore/internal/domain"
	"photocore/internal/exifdata"
	"photocore/internal/hasher"
	"photocore/internal/logging"
	"photocore/internal/matching"
	"photocore/internal/ranking"
	"photocore/internal/scanner"
	"photocore/internal/workerpool"
)

// EventKind identifies the stage an Event reports on, mirroring the
// teacher's own operation-name strings but as a closed enumeration.
type EventKind int

const (
	EventStarted EventKind = iota
	EventFileHashed
	EventCompleted
)

// Event is one progress notification emitted during a Run, consumed
// by the caller over a channel the way the teacher streams backup
// progress over an mpsc channel from lib.rs's scan().
type Event struct {
	Kind  EventKind
	Total int
	Done  int
}

// phaseAResult is one dirty candidate's Phase-A output.
type phaseAResult struct {
	candidate candidateWithSource
	sourceID  int64
	sha256    string
	exif      domain.ExifData
	err       error
}

// Run executes one full incremental scan across every registered
// source and returns the rebuilt duplicate groups. events, if
// non-nil, receives progress notifications and is closed by Run
// before it returns.
func Run(c *catalog.Catalog, sources []domain.SourceDirectory, workers int, logger logging.Logger, clock Clock, events chan<- Event) ([]domain.DuplicateGroup, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if events != nil {
		defer close(events)
	}

	correlationID := uuid.NewString()
	logger.Info("scan started", "scan_id", correlationID, "sources", len(sources))

	var allCandidates []candidateWithSource
	for _, src := range sources {
		candidates, err := scanner.Walk(src.Path, func(skipErr error) {
			logger.Warn("scan skipped entry", "scan_id", correlationID, "error", skipErr)
		})
		if err != nil {
			return nil, &corerr.IoError{Path: src.Path, Err: err}
		}
		for _, cand := range candidates {
			allCandidates = append(allCandidates, candidateWithSource{cand, src.ID})
		}
	}

	if events != nil {
		events <- Event{Kind: EventStarted, Total: len(allCandidates)}
	}

	dirty, err := partitionDirty(c, sources, allCandidates)
	if err != nil {
		return nil, err
	}

	results := workerpool.Run(workers, dirty, func(cws candidateWithSource) phaseAResult {
		return runPhaseA(cws)
	})

	bySHA := map[string][]int{}
	for i, r := range results {
		if r.err != nil {
			logger.Warn("phase-a failed", "scan_id", correlationID, "path", r.candidate.candidate.Path, "error", r.err)
			continue
		}
		bySHA[r.sha256] = append(bySHA[r.sha256], i)
	}

	representatives := make([]int, 0, len(bySHA))
	for _, idxs := range bySHA {
		sort.Slice(idxs, func(a, b int) bool {
			return results[idxs[a]].candidate.candidate.Path < results[idxs[b]].candidate.candidate.Path
		})
		representatives = append(representatives, idxs[0])
	}

	type hashOutcome struct {
		idx          int
		aHash, dHash uint64
		ok           bool
		err          error
	}

	needsPhaseB := make([]int, 0, len(representatives))
	outcomes := map[int]hashOutcome{}
	for _, idx := range representatives {
		sha := results[idx].sha256
		if a, d, ok, err := c.CachedPerceptualHash(sha); err == nil && ok {
			outcomes[idx] = hashOutcome{idx: idx, aHash: a, dHash: d, ok: true}
			continue
		}
		if !results[idx].candidate.candidate.Format.SupportsPerceptualHash() {
			outcomes[idx] = hashOutcome{idx: idx, ok: false}
			continue
		}
		needsPhaseB = append(needsPhaseB, idx)
	}

	phaseBOut := workerpool.Run(workers, needsPhaseB, func(idx int) hashOutcome {
		r := results[idx]
		a, d, ok, err := hasher.PerceptualHash(r.candidate.candidate.Path, r.candidate.candidate.Format)
		if err != nil {
			err = &corerr.DecodeError{Path: r.candidate.candidate.Path, Err: err}
		}
		return hashOutcome{idx: idx, aHash: a, dHash: d, ok: ok, err: err}
	})
	for _, o := range phaseBOut {
		if o.err != nil {
			logger.Warn("phase-b decode failed", "scan_id", correlationID, "path", results[o.idx].candidate.candidate.Path, "error", o.err)
		}
		outcomes[o.idx] = o
	}

	done := 0
	if events != nil {
		done = len(dirty)
		events <- Event{Kind: EventFileHashed, Total: len(allCandidates), Done: done}
	}

	// Propagate each representative's hash outcome to every record
	// sharing its SHA while persisting. Each record is written by its
	// own catalog statements; the writes are not grouped into a single
	// transaction, so a failure part-way leaves the earlier records
	// persisted.
	for sha, idxs := range bySHA {
		rep := idxs[0]
		o := outcomes[rep]
		for _, i := range idxs {
			r := results[i]
			photoID, err := c.UpsertPhoto(domain.PhotoRecord{
				Path: r.candidate.candidate.Path, SourceID: r.sourceID, SHA256: sha,
				Size: r.candidate.candidate.Size, MTime: r.candidate.candidate.MTime,
				Format: r.candidate.candidate.Format, Exif: r.exif,
			})
			if err != nil {
				return nil, err
			}
			if o.ok {
				if err := c.UpdatePerceptualHash(photoID, o.aHash, o.dHash); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, src := range sources {
		stillPresent := make(map[string]bool)
		for _, cws := range allCandidates {
			if cws.sourceID == src.ID {
				stillPresent[cws.candidate.Path] = true
			}
		}
		known, err := c.BatchFetchMTimes(src.ID)
		if err != nil {
			return nil, err
		}
		var removed []string
		for path := range known {
			if !stillPresent[path] {
				removed = append(removed, path)
			}
		}
		if len(removed) > 0 {
			if err := c.RemovePhotosByPath(src.ID, removed); err != nil {
				return nil, err
			}
		}
		if err := c.UpdateSourceScanned(src.ID, clock.Now().Unix()); err != nil {
			return nil, err
		}
	}

	allPhotos, err := c.ListPhotos(nil)
	if err != nil {
		return nil, err
	}

	groups := matching.FindDuplicates(allPhotos)
	byID := make(map[int64]domain.PhotoRecord, len(allPhotos))
	for _, p := range allPhotos {
		byID[p.ID] = p
	}
	for i := range groups {
		members := make([]domain.PhotoRecord, 0, len(groups[i].MemberIDs))
		for _, id := range groups[i].MemberIDs {
			members = append(members, byID[id])
		}
		groups[i].SourceOfTruthID = ranking.Elect(members)
	}

	if err := c.ReplaceGroups(groups); err != nil {
		return nil, err
	}

	if events != nil {
		events <- Event{Kind: EventCompleted, Total: len(allCandidates), Done: done}
	}
	logger.Info("scan completed", "scan_id", correlationID, "groups", len(groups))

	return groups, nil
}

type candidateWithSource struct {
	candidate scanner.Candidate
	sourceID  int64
}

// partitionDirty keeps only candidates whose mtime differs from the
// catalog's recorded mtime (or that are new), per spec step 1.
// Unchanged candidates are skipped entirely — their SHA is trusted
// without recomputation.
func partitionDirty(c *catalog.Catalog, sources []domain.SourceDirectory, candidates []candidateWithSource) ([]candidateWithSource, error) {
	knownBySource := map[int64]map[string]int64{}
	for _, src := range sources {
		mtimes, err := c.BatchFetchMTimes(src.ID)
		if err != nil {
			return nil, err
		}
		knownBySource[src.ID] = mtimes
	}

	var dirty []candidateWithSource
	for _, cws := range candidates {
		known, ok := knownBySource[cws.sourceID][cws.candidate.Path]
		if ok && known == cws.candidate.MTime {
			continue
		}
		dirty = append(dirty, cws)
	}
	return dirty, nil
}

func runPhaseA(cws candidateWithSource) phaseAResult {
	f, err := os.Open(cws.candidate.Path)
	if err != nil {
		return phaseAResult{candidate: cws, sourceID: cws.sourceID, err: &corerr.IoError{Path: cws.candidate.Path, Err: err}}
	}
	defer f.Close()

	sha, err := hasher.SHA256(f)
	if err != nil {
		return phaseAResult{candidate: cws, sourceID: cws.sourceID, err: &corerr.IoError{Path: cws.candidate.Path, Err: err}}
	}

	if _, err := f.Seek(0, 0); err != nil {
		return phaseAResult{candidate: cws, sourceID: cws.sourceID, sha256: sha, err: &corerr.IoError{Path: cws.candidate.Path, Err: err}}
	}
	exif := exifdata.Extract(f)

	return phaseAResult{candidate: cws, sourceID: cws.sourceID, sha256: sha, exif: exif}
}
