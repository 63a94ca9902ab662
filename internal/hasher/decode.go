package hasher

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // registers png.Decode for decodeRGBFull via imaging
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // registers tiff.Decode
	_ "golang.org/x/image/webp" // registers webp.Decode

	"photocore/internal/domain"
)

// decodeGrayFull decodes a JPEG directly to 8-bit grayscale at full
// native resolution, reading the luma (Y) plane only — chroma planes
// are never touched, matching a hardware JPEG decoder's grayscale
// output mode.
func decodeGrayFull(r io.Reader) ([]byte, int, int, error) {
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, 0, 0, err
	}

	switch src := img.(type) {
	case *image.Gray:
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		out := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(out[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return out, w, h, nil
	case *image.YCbCr:
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		out := make([]byte, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := src.YOffset(x, y)
				out[y*w+x] = src.Y[off]
			}
		}
		return out, w, h, nil
	default:
		// Fallback for exotic JPEG color models: convert generically.
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		out := make([]byte, w*h)
		gray := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				gray.Set(x, y, img.At(x, y))
			}
		}
		for y := 0; y < h; y++ {
			copy(out[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
		}
		return out, w, h, nil
	}
}

// decodeRGBFull decodes PNG/TIFF/WebP to 8-bit RGB (3 bytes/pixel) at
// full native resolution.
func decodeRGBFull(r io.Reader, format domain.PhotoFormat) ([]byte, int, int, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(false))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding %s: %w", format, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	nrgba := imaging.Clone(img)
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		srcRow := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			out[(y*w+x)*3+0] = srcRow[x*4+0]
			out[(y*w+x)*3+1] = srcRow[x*4+1]
			out[(y*w+x)*3+2] = srcRow[x*4+2]
		}
	}
	return out, w, h, nil
}

// openForDecode opens the file at path for the decoders and the
// orientation reader.
func openForDecode(path string) (*os.File, error) {
	return os.Open(path)
}
