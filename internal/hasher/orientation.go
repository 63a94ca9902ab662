package hasher

// applyOrientation transforms a packed pixel buffer (width*height*channels
// bytes, row-major, channels interleaved) according to an EXIF
// orientation code (1-8), returning a new buffer and its (possibly
// swapped) dimensions. Orientation 1 is the identity and returns the
// input unchanged. Grounded bit-for-bit on
// original_source/crates/core/src/hasher/perceptual.rs's
// apply_orientation / apply_orientation_rgb, generalized to a single
// channel-agnostic implementation since both call sites only differ
// in channel count.
func applyOrientation(src []byte, width, height, channels int, orientation uint8) ([]byte, int, int) {
	if orientation == 1 || orientation < 1 || orientation > 8 {
		return src, width, height
	}

	swapped := orientation >= 5
	outW, outH := width, height
	if swapped {
		outW, outH = height, width
	}

	dst := make([]byte, outW*outH*channels)

	srcPixel := func(x, y int) []byte {
		off := (y*width + x) * channels
		return src[off : off+channels]
	}
	setDstPixel := func(x, y int, px []byte) {
		off := (y*outW + x) * channels
		copy(dst[off:off+channels], px)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := srcPixel(x, y)
			var dx, dy int
			switch orientation {
			case 2: // mirror horizontal
				dx, dy = width-1-x, y
			case 3: // rotate 180
				dx, dy = width-1-x, height-1-y
			case 4: // mirror vertical
				dx, dy = x, height-1-y
			case 5: // transpose (mirror horizontal + rotate 270 CW)
				dx, dy = y, x
			case 6: // rotate 90 CW
				dx, dy = height-1-y, x
			case 7: // transverse (mirror horizontal + rotate 90 CW)
				dx, dy = height-1-y, width-1-x
			case 8: // rotate 270 CW (90 CCW)
				dx, dy = y, width-1-x
			default:
				dx, dy = x, y
			}
			setDstPixel(dx, dy, px)
		}
	}

	return dst, outW, outH
}
