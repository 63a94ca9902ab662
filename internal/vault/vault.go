// Package vault is the single entry point for non-core callers: it
// composes the catalog, scanner, matcher, ranking, and pack writer
// behind the facade named in spec §6. Grounded on the teacher's
// BTService, which plays the identical role of the one orchestrating
// object a CLI or other caller talks to instead of reaching into
// internal packages directly.
package vault

import (
	"photocore/internal/catalog"
	"photocore/internal/domain"
	"photocore/internal/logging"
	"photocore/internal/pack"
	"photocore/internal/scan"
)

// Vault is the facade. The zero value is not usable; construct with
// Open.
type Vault struct {
	catalog *catalog.Catalog
	logger  logging.Logger
	workers int
}

// Options configures Open. A zero value is valid: default logger is a
// no-op; with Workers at zero the scan phases start one goroutine per
// item and the pack writer copies with a single goroutine.
type Options struct {
	Logger  logging.Logger
	Workers int
}

// Open opens (creating if absent) the catalog at catalogPath, running
// pending migrations and reconciling schema/phash versions.
func Open(catalogPath string, opts Options) (*Vault, error) {
	c, err := catalog.Open(catalogPath)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Vault{catalog: c, logger: logger, workers: opts.Workers}, nil
}

// Close releases the underlying catalog handle.
func (v *Vault) Close() error {
	return v.catalog.Close()
}

// AddSource registers a directory as a scan source, idempotently.
func (v *Vault) AddSource(path string) error {
	_, err := v.catalog.AddSource(path)
	return err
}

// RemoveSource deletes a source and every record under it. Groups
// rebuild on the next Scan.
func (v *Vault) RemoveSource(path string) error {
	return v.catalog.RemoveSource(path)
}

// SetPackPath persists the active pack directory and idempotently
// registers it as a scan source, so a later Scan notices files the
// pack writer placed there.
func (v *Vault) SetPackPath(path string) error {
	if err := v.catalog.SetPackPath(path); err != nil {
		return err
	}
	return v.AddSource(path)
}

// Scan runs the two-phase incremental scan across every registered
// source and rebuilds duplicate groups. events, if non-nil, receives
// progress notifications.
func (v *Vault) Scan(events chan<- scan.Event) ([]domain.DuplicateGroup, error) {
	sources, err := v.catalog.ListSources()
	if err != nil {
		return nil, err
	}
	return scan.Run(v.catalog, sources, v.workers, v.logger, scan.RealClock{}, events)
}

// ListGroups returns all duplicate groups with their members and SOT.
func (v *Vault) ListGroups() ([]domain.DuplicateGroup, error) {
	return v.catalog.ListGroups()
}

// ListPhotos returns photo records, optionally filtered to one
// source.
func (v *Vault) ListPhotos(sourceID *int64) ([]domain.PhotoRecord, error) {
	return v.catalog.ListPhotos(sourceID)
}

// Pack runs the content-addressable pack writer: one file per
// duplicate group (its source-of-truth) plus every ungrouped photo.
func (v *Vault) Pack(events chan<- scan.Event) error {
	if events != nil {
		defer close(events)
	}

	cfg, err := v.catalog.GetConfig()
	if err != nil {
		return err
	}
	if cfg.PackPath == nil {
		return nil
	}

	groups, err := v.catalog.ListGroups()
	if err != nil {
		return err
	}
	photos, err := v.catalog.ListPhotos(nil)
	if err != nil {
		return err
	}

	inGroup := make(map[int64]bool)
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			inGroup[id] = true
		}
	}

	desired := make([]pack.Desired, 0, len(groups)+len(photos))
	for _, g := range groups {
		sot, err := v.catalog.PhotoByID(g.SourceOfTruthID)
		if err != nil {
			return err
		}
		desired = append(desired, pack.Desired{SHA256: sot.SHA256, Path: sot.Path, Format: sot.Format, Size: sot.Size, Exif: sot.Exif})
	}
	for _, p := range photos {
		if !inGroup[p.ID] {
			desired = append(desired, pack.Desired{SHA256: p.SHA256, Path: p.Path, Format: p.Format, Size: p.Size, Exif: p.Exif})
		}
	}

	if events != nil {
		events <- scan.Event{Kind: scan.EventStarted, Total: len(desired)}
	}
	writer := pack.NewWriter(*cfg.PackPath, v.workers, v.logger)
	if err := writer.Write(desired); err != nil {
		return err
	}
	if events != nil {
		events <- scan.Event{Kind: scan.EventCompleted, Total: len(desired), Done: len(desired)}
	}
	return nil
}

// Status is the aggregate read-only summary exposed to CLIs that
// don't want to re-derive counts from ListGroups/ListPhotos
// themselves.
type Status struct {
	Sources             int
	Photos              int
	Groups              int
	DuplicateBytesWaste int64
}

// Status returns aggregate counts: sources, photos, groups, and the
// bytes reclaimable by removing every non-SOT duplicate.
func (v *Vault) Status() (Status, error) {
	sources, err := v.catalog.ListSources()
	if err != nil {
		return Status{}, err
	}
	photos, err := v.catalog.ListPhotos(nil)
	if err != nil {
		return Status{}, err
	}
	groups, err := v.catalog.ListGroups()
	if err != nil {
		return Status{}, err
	}

	byID := make(map[int64]domain.PhotoRecord, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	var waste int64
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			if id == g.SourceOfTruthID {
				continue
			}
			waste += byID[id].Size
		}
	}

	return Status{Sources: len(sources), Photos: len(photos), Groups: len(groups), DuplicateBytesWaste: waste}, nil
}
