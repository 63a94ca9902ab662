package catalog

import (
	"testing"

	"photocore/internal/domain"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_SeedsConfigVersions(t *testing.T) {
	c := newTestCatalog(t)

	cfg, err := c.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if cfg.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", cfg.SchemaVersion, SchemaVersion)
	}
}

func TestAddSource_IsIdempotent(t *testing.T) {
	c := newTestCatalog(t)

	id1, err := c.AddSource("/photos")
	if err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}

	id2, err := c.AddSource("/photos")
	if err != nil {
		t.Fatalf("second AddSource() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("re-adding source changed id: %d -> %d", id1, id2)
	}

	sources, err := c.ListSources()
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("len(sources) = %d, want 1", len(sources))
	}
}

func TestRemoveSource_CascadesToPhotos(t *testing.T) {
	c := newTestCatalog(t)

	sourceID, _ := c.AddSource("/photos")
	_, err := c.UpsertPhoto(domain.PhotoRecord{
		Path: "/photos/a.jpg", SourceID: sourceID, SHA256: "abc", Size: 10, MTime: 100, Format: domain.FormatJPEG,
	})
	if err != nil {
		t.Fatalf("UpsertPhoto() error = %v", err)
	}

	if err := c.RemoveSource("/photos"); err != nil {
		t.Fatalf("RemoveSource() error = %v", err)
	}

	photos, err := c.ListPhotos(nil)
	if err != nil {
		t.Fatalf("ListPhotos() error = %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("len(photos) = %d, want 0 after cascading source removal", len(photos))
	}
}

func TestUpsertPhoto_ReplacesRecordAtSamePath(t *testing.T) {
	c := newTestCatalog(t)
	sourceID, _ := c.AddSource("/photos")

	id1, err := c.UpsertPhoto(domain.PhotoRecord{
		Path: "/photos/a.jpg", SourceID: sourceID, SHA256: "sha-old", Size: 10, MTime: 100, Format: domain.FormatJPEG,
	})
	if err != nil {
		t.Fatalf("first UpsertPhoto() error = %v", err)
	}

	id2, err := c.UpsertPhoto(domain.PhotoRecord{
		Path: "/photos/a.jpg", SourceID: sourceID, SHA256: "sha-new", Size: 20, MTime: 200, Format: domain.FormatJPEG,
	})
	if err != nil {
		t.Fatalf("second UpsertPhoto() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("UpsertPhoto() changed id on same path: %d -> %d", id1, id2)
	}

	photos, _ := c.ListPhotos(nil)
	if len(photos) != 1 {
		t.Fatalf("len(photos) = %d, want 1", len(photos))
	}
	if photos[0].SHA256 != "sha-new" || photos[0].Size != 20 {
		t.Errorf("photo not replaced: got sha=%s size=%d", photos[0].SHA256, photos[0].Size)
	}
}

func TestBatchFetchMTimes_ReturnsKnownPaths(t *testing.T) {
	c := newTestCatalog(t)
	sourceID, _ := c.AddSource("/photos")
	c.UpsertPhoto(domain.PhotoRecord{Path: "/photos/a.jpg", SourceID: sourceID, MTime: 111, Format: domain.FormatJPEG})
	c.UpsertPhoto(domain.PhotoRecord{Path: "/photos/b.jpg", SourceID: sourceID, MTime: 222, Format: domain.FormatJPEG})

	mtimes, err := c.BatchFetchMTimes(sourceID)
	if err != nil {
		t.Fatalf("BatchFetchMTimes() error = %v", err)
	}
	if mtimes["/photos/a.jpg"] != 111 || mtimes["/photos/b.jpg"] != 222 {
		t.Errorf("BatchFetchMTimes() = %v", mtimes)
	}
}

func TestCachedPerceptualHash_ReusesByContentHash(t *testing.T) {
	c := newTestCatalog(t)
	sourceID, _ := c.AddSource("/photos")

	id, _ := c.UpsertPhoto(domain.PhotoRecord{Path: "/photos/a.jpg", SourceID: sourceID, SHA256: "dup-sha", Format: domain.FormatJPEG})
	if err := c.UpdatePerceptualHash(id, 0xAAAA, 0xBBBB); err != nil {
		t.Fatalf("UpdatePerceptualHash() error = %v", err)
	}

	a, d, ok, err := c.CachedPerceptualHash("dup-sha")
	if err != nil {
		t.Fatalf("CachedPerceptualHash() error = %v", err)
	}
	if !ok || a != 0xAAAA || d != 0xBBBB {
		t.Errorf("CachedPerceptualHash() = (%x, %x, %v)", a, d, ok)
	}

	if _, _, ok, _ := c.CachedPerceptualHash("unknown-sha"); ok {
		t.Error("CachedPerceptualHash() ok = true for unknown sha")
	}
}

func TestReplaceGroups_RebuildsMembershipAndAssignsGroupID(t *testing.T) {
	c := newTestCatalog(t)
	sourceID, _ := c.AddSource("/photos")
	id1, _ := c.UpsertPhoto(domain.PhotoRecord{Path: "/photos/a.jpg", SourceID: sourceID, Format: domain.FormatJPEG})
	id2, _ := c.UpsertPhoto(domain.PhotoRecord{Path: "/photos/b.jpg", SourceID: sourceID, Format: domain.FormatJPEG})

	err := c.ReplaceGroups([]domain.DuplicateGroup{
		{Confidence: domain.ConfidenceCertain, MemberIDs: []int64{id1, id2}, SourceOfTruthID: id1},
	})
	if err != nil {
		t.Fatalf("ReplaceGroups() error = %v", err)
	}

	groups, err := c.ListGroups()
	if err != nil {
		t.Fatalf("ListGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if len(groups[0].MemberIDs) != 2 {
		t.Errorf("len(MemberIDs) = %d, want 2", len(groups[0].MemberIDs))
	}
	if groups[0].SourceOfTruthID != id1 {
		t.Errorf("SourceOfTruthID = %d, want %d", groups[0].SourceOfTruthID, id1)
	}

	photos, _ := c.ListPhotos(nil)
	for _, p := range photos {
		if p.GroupID == nil || *p.GroupID != groups[0].ID {
			t.Errorf("photo %d GroupID = %v, want %d", p.ID, p.GroupID, groups[0].ID)
		}
	}

	// A second call with no groups clears everything instead of leaving
	// stale membership behind.
	if err := c.ReplaceGroups(nil); err != nil {
		t.Fatalf("ReplaceGroups(nil) error = %v", err)
	}
	groups, _ = c.ListGroups()
	if len(groups) != 0 {
		t.Errorf("len(groups) after clearing = %d, want 0", len(groups))
	}
	photos, _ = c.ListPhotos(nil)
	for _, p := range photos {
		if p.GroupID != nil {
			t.Errorf("photo %d still has GroupID %v after clearing", p.ID, *p.GroupID)
		}
	}
}

func TestPhotoByID_ReturnsFullRecordWithExif(t *testing.T) {
	c := newTestCatalog(t)
	sourceID, _ := c.AddSource("/photos")
	camera := "Canon EOS R5"
	id, err := c.UpsertPhoto(domain.PhotoRecord{
		Path: "/photos/a.jpg", SourceID: sourceID, Format: domain.FormatJPEG,
		Exif: domain.ExifData{CameraModel: &camera},
	})
	if err != nil {
		t.Fatalf("UpsertPhoto() error = %v", err)
	}

	got, err := c.PhotoByID(id)
	if err != nil {
		t.Fatalf("PhotoByID() error = %v", err)
	}
	if got.Exif.CameraModel == nil || *got.Exif.CameraModel != camera {
		t.Errorf("Exif.CameraModel = %v, want %q", got.Exif.CameraModel, camera)
	}
}

func TestSetPackPath_PersistsInConfig(t *testing.T) {
	c := newTestCatalog(t)

	if err := c.SetPackPath("/mnt/pack"); err != nil {
		t.Fatalf("SetPackPath() error = %v", err)
	}

	cfg, err := c.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if cfg.PackPath == nil || *cfg.PackPath != "/mnt/pack" {
		t.Errorf("PackPath = %v, want /mnt/pack", cfg.PackPath)
	}

	// Setting again updates rather than duplicating the row.
	if err := c.SetPackPath("/mnt/pack2"); err != nil {
		t.Fatalf("second SetPackPath() error = %v", err)
	}
	cfg, _ = c.GetConfig()
	if cfg.PackPath == nil || *cfg.PackPath != "/mnt/pack2" {
		t.Errorf("PackPath = %v, want /mnt/pack2", cfg.PackPath)
	}
}
