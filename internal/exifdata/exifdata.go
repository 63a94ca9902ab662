// Package exifdata extracts capture datetime, camera model, and
// orientation from image files. Grounded on
// _examples/camden-git-mediasys's use of github.com/rwcarlsen/goexif
// and original_source/crates/core/src/hasher/perceptual.rs's
// read_exif_orientation (default-to-1/absent-on-error semantics).
package exifdata

import (
	"io"

	"github.com/rwcarlsen/goexif/exif"

	"photocore/internal/domain"
)

// Extract reads EXIF fields from r. Malformed metadata or a
// non-image byte stream yields an empty ExifData rather than an
// error — per spec, EXIF absence is never a scan-aborting failure.
func Extract(r io.Reader) domain.ExifData {
	x, err := exif.Decode(r)
	if err != nil {
		return domain.ExifData{}
	}

	var out domain.ExifData

	if t, err := x.DateTime(); err == nil {
		utc := t.UTC()
		out.CapturedAt = &utc
	}

	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil && s != "" {
			out.CameraModel = &s
		}
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			o := uint8(v)
			out.Orientation = &o
		}
	}

	return out
}

// ReadOrientation reads only the orientation tag, defaulting to 1
// (normal) on any decode error — the value the perceptual hasher's
// pipeline needs before it can apply a transform.
func ReadOrientation(r io.Reader) uint8 {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return uint8(v)
}
