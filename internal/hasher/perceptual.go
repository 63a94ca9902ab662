// Package hasher implements the content hash (SHA-256) and the
// perceptual hash pipeline (decode -> EXIF-orientation -> resize-9x8
// -> aHash/dHash) pinned bit-for-bit by
// original_source/crates/core/src/hasher/perceptual.rs. Any change to
// decoder, resize filter, orientation semantics, BT.601 coefficients,
// or bit ordering must bump PhashVersion.
package hasher

import (
	"fmt"
	"image"
	"math/bits"

	xdraw "golang.org/x/image/draw"

	"photocore/internal/domain"
	"photocore/internal/exifdata"
)

// PhashVersion pins the perceptual pipeline. Bumping it is the only
// correct way to invalidate cached hashes after an algorithm change.
const PhashVersion = 1

const (
	resizeW = 9
	resizeH = 8
)

// PerceptualHash computes (aHash, dHash) for a file at path whose
// format supports perceptual hashing. Returns ok=false for formats
// that don't (HEIC, RAW).
func PerceptualHash(path string, format domain.PhotoFormat) (aHash, dHash uint64, ok bool, err error) {
	if !format.SupportsPerceptualHash() {
		return 0, 0, false, nil
	}

	orientation := readOrientationFromFile(path)

	var gray []byte
	var w, h int

	if format == domain.FormatJPEG {
		f, ferr := openForDecode(path)
		if ferr != nil {
			return 0, 0, false, ferr
		}
		defer f.Close()
		gray, w, h, err = decodeGrayFull(f)
		if err != nil {
			return 0, 0, false, err
		}
		gray, w, h = applyOrientation(gray, w, h, 1, orientation)
	} else {
		f, ferr := openForDecode(path)
		if ferr != nil {
			return 0, 0, false, ferr
		}
		defer f.Close()
		rgb, rw, rh, derr := decodeRGBFull(f, format)
		if derr != nil {
			return 0, 0, false, derr
		}
		rgb, rw, rh = applyOrientation(rgb, rw, rh, 3, orientation)
		gray, w, h = resizeRGBToGray(rgb, rw, rh)
		return computeHashes(gray, w, h)
	}

	gray = resizeGray(gray, w, h)
	return computeHashes(gray, resizeW, resizeH)
}

func readOrientationFromFile(path string) uint8 {
	f, err := openForDecode(path)
	if err != nil {
		return 1
	}
	defer f.Close()
	return exifdata.ReadOrientation(f)
}

// resizeGray downscales a full-resolution grayscale buffer to the
// pinned 9x8 target using a hardware-friendly separable bilinear
// scaler (the stand-in for the original's SIMD resize).
func resizeGray(src []byte, w, h int) []byte {
	srcImg := &image.Gray{Pix: src, Stride: w, Rect: image.Rect(0, 0, w, h)}
	dst := image.NewGray(image.Rect(0, 0, resizeW, resizeH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), srcImg, srcImg.Bounds(), xdraw.Over, nil)
	out := make([]byte, resizeW*resizeH)
	for y := 0; y < resizeH; y++ {
		copy(out[y*resizeW:(y+1)*resizeW], dst.Pix[y*dst.Stride:y*dst.Stride+resizeW])
	}
	return out
}

// resizeRGBToGray downscales a full-resolution RGB buffer to 9x8, then
// converts the 72 resized pixels to luminance via BT.601 — cheaper
// than converting the full frame before resizing.
func resizeRGBToGray(src []byte, w, h int) ([]byte, int, int) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			so := (y*w + x) * 3
			do := nrgba.PixOffset(x, y)
			nrgba.Pix[do+0] = src[so+0]
			nrgba.Pix[do+1] = src[so+1]
			nrgba.Pix[do+2] = src[so+2]
			nrgba.Pix[do+3] = 255
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, resizeW, resizeH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), nrgba, nrgba.Bounds(), xdraw.Over, nil)

	gray := make([]byte, resizeW*resizeH)
	for y := 0; y < resizeH; y++ {
		for x := 0; x < resizeW; x++ {
			off := dst.PixOffset(x, y)
			r, g, b := dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2]
			gray[y*resizeW+x] = byte(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
		}
	}
	return gray, resizeW, resizeH
}

// computeHashes derives aHash and dHash from a 9x8 grayscale buffer
// per the pinned bit layout: aHash over the left 8x8 block compared
// against its mean, dHash from row-major adjacent-pixel comparisons
// across all 9 columns of each of the 8 rows.
func computeHashes(buf []byte, w, h int) (aHash, dHash uint64, ok bool, err error) {
	if w != resizeW || h != resizeH {
		return 0, 0, false, fmt.Errorf("unexpected resized dimensions %dx%d", w, h)
	}

	var sum int
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sum += int(buf[y*resizeW+x])
		}
	}
	mean := sum / 64

	var a uint64
	bit := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if int(buf[y*resizeW+x]) >= mean {
				a |= 1 << uint(63-bit)
			}
			bit++
		}
	}

	var d uint64
	bit = 0
	for y := 0; y < 8; y++ {
		for c := 0; c < 8; c++ {
			if buf[y*resizeW+c+1] > buf[y*resizeW+c] {
				d |= 1 << uint(63-bit)
			}
			bit++
		}
	}

	return a, d, true, nil
}

// HammingDistance returns the number of differing bits between a and b.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
