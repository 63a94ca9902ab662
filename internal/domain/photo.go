// Package domain holds the value types shared by every photocore
// component: photo records, the closed format enumeration, EXIF
// snapshots, duplicate groups, and confidence levels. None of these
// types carry behavior beyond small pure predicates — formats are
// not subclassed, and groups hold ids, never live object graphs.
package domain

import "time"

// PhotoFormat is a closed enumeration of the image formats photocore
// recognizes. Ordering here is arbitrary; ranking uses QualityTier.
type PhotoFormat int

const (
	FormatUnknown PhotoFormat = iota
	FormatCR2
	FormatCR3
	FormatNEF
	FormatARW
	FormatORF
	FormatRAF
	FormatRW2
	FormatDNG
	FormatTIFF
	FormatPNG
	FormatJPEG
	FormatHEIC
	FormatWebP
)

var extensionFormats = map[string]PhotoFormat{
	".cr2":  FormatCR2,
	".cr3":  FormatCR3,
	".nef":  FormatNEF,
	".arw":  FormatARW,
	".orf":  FormatORF,
	".raf":  FormatRAF,
	".rw2":  FormatRW2,
	".dng":  FormatDNG,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".heic": FormatHEIC,
	".heif": FormatHEIC,
	".webp": FormatWebP,
}

// FormatFromExtension maps a lower-cased file extension (with leading
// dot) to a PhotoFormat. The second return is false for unrecognized
// extensions, which the scanner silently skips.
func FormatFromExtension(ext string) (PhotoFormat, bool) {
	f, ok := extensionFormats[ext]
	return f, ok
}

// QualityTier returns the ranking tier for a format: higher wins.
// RAW formats (5) > TIFF (4) > PNG (3) > JPEG (2) > HEIC (1) > WebP (0).
func (f PhotoFormat) QualityTier() int {
	switch f {
	case FormatCR2, FormatCR3, FormatNEF, FormatARW, FormatORF, FormatRAF, FormatRW2, FormatDNG:
		return 5
	case FormatTIFF:
		return 4
	case FormatPNG:
		return 3
	case FormatJPEG:
		return 2
	case FormatHEIC:
		return 1
	case FormatWebP:
		return 0
	default:
		return -1
	}
}

// SupportsPerceptualHash reports whether the perceptual hasher can
// safely decode this format. RAW and HEIC are excluded to avoid
// decoder hangs and unsupported colorspaces.
func (f PhotoFormat) SupportsPerceptualHash() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatTIFF, FormatWebP:
		return true
	default:
		return false
	}
}

// Extension returns the lowercase canonical extension (no leading dot)
// used by the pack writer to name a packed file.
func (f PhotoFormat) Extension() string {
	switch f {
	case FormatCR2:
		return "cr2"
	case FormatCR3:
		return "cr3"
	case FormatNEF:
		return "nef"
	case FormatARW:
		return "arw"
	case FormatORF:
		return "orf"
	case FormatRAF:
		return "raf"
	case FormatRW2:
		return "rw2"
	case FormatDNG:
		return "dng"
	case FormatTIFF:
		return "tiff"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	case FormatHEIC:
		return "heic"
	case FormatWebP:
		return "webp"
	default:
		return ""
	}
}

func (f PhotoFormat) String() string {
	switch f {
	case FormatCR2:
		return "CR2"
	case FormatCR3:
		return "CR3"
	case FormatNEF:
		return "NEF"
	case FormatARW:
		return "ARW"
	case FormatORF:
		return "ORF"
	case FormatRAF:
		return "RAF"
	case FormatRW2:
		return "RW2"
	case FormatDNG:
		return "DNG"
	case FormatTIFF:
		return "TIFF"
	case FormatPNG:
		return "PNG"
	case FormatJPEG:
		return "JPEG"
	case FormatHEIC:
		return "HEIC"
	case FormatWebP:
		return "WebP"
	default:
		return "UNKNOWN"
	}
}

// ExifData is the metadata snapshot pulled by the EXIF extractor.
// Missing fields are absent, never synthesized.
type ExifData struct {
	CapturedAt  *time.Time
	CameraModel *string
	Orientation *uint8
}

// IsEmpty reports whether no EXIF field was recovered.
func (e ExifData) IsEmpty() bool {
	return e.CapturedAt == nil && e.CameraModel == nil && e.Orientation == nil
}

// PhotoRecord is one file on disk observed by any scan.
type PhotoRecord struct {
	ID         int64
	Path       string
	SourceID   int64
	SHA256     string // 64 lowercase hex chars; empty until Phase-A completes
	Size       int64
	MTime      int64 // unix seconds, non-negative
	Format     PhotoFormat
	AHash      *uint64
	DHash      *uint64
	Exif       ExifData
	GroupID    *int64
}

// HasPerceptualHash reports whether both hashes are present. The two
// are always computed together; this predicate encodes that invariant
// for callers instead of checking each field separately.
func (p PhotoRecord) HasPerceptualHash() bool {
	return p.AHash != nil && p.DHash != nil
}

// SourceDirectory is a registered scan root.
type SourceDirectory struct {
	ID         int64
	Path       string
	LastScanAt int64 // unix seconds, 0 if never scanned
}

// Confidence is a totally ordered duplicate-match confidence level.
// Lower (more conservative) wins on merge.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceProbable
	ConfidenceHigh
	ConfidenceNearCertain
	ConfidenceCertain
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceCertain:
		return "Certain"
	case ConfidenceNearCertain:
		return "NearCertain"
	case ConfidenceHigh:
		return "High"
	case ConfidenceProbable:
		return "Probable"
	default:
		return "Low"
	}
}

// CombineConfidence returns the lower (more conservative) of two
// confidence levels, the rule used whenever groups merge.
func CombineConfidence(a, b Confidence) Confidence {
	if a < b {
		return a
	}
	return b
}

// DuplicateGroup is a set of photo ids believed to be duplicates, with
// an elected source-of-truth. Groups are rebuilt from scratch every
// scan; ids are not stable across runs.
type DuplicateGroup struct {
	ID              int64
	Confidence      Confidence
	MemberIDs       []int64
	SourceOfTruthID int64
}

// CatalogConfig is the catalog's key/value config table contents.
type CatalogConfig struct {
	SchemaVersion int
	PhashVersion  int
	PackPath      *string
	ExportPath    *string
}
