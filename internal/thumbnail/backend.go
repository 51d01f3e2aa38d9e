package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"image/gif" // also registers GIF decoding with image.Decode

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"  // register BMP decoding
	_ "golang.org/x/image/tiff" // register TIFF decoding
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/galleryhost/gallery/internal/galleryerr"
)

// ErrUnsupportedSource is returned by a backend when the source kind has
// no decoder available. The pipeline treats this identically to a decode
// failure: write the broken-media sentinel once (spec.md §4.4.5).
var ErrUnsupportedSource = errors.New("thumbnail: unsupported source kind")

// jpegQuality is the compression quality used for all non-transparent
// output slots (spec.md §4.4.2, "compressed JPEG or PNG").
const jpegQuality = 85

// ImageBackend takes already-resolved image bytes and a set of named
// fit-inside-box targets and returns encoded thumbnails for each
// (spec.md §4.4.2).
type ImageBackend interface {
	Generate(ctx context.Context, data []byte, sizes map[string]Size) (map[string][]byte, error)
}

// PillowBackend is the portable baseline backend: decodes the standard
// raster formats plus the extras golang.org/x/image adds, resizes with
// golang.org/x/image/draw, and re-encodes as JPEG (or PNG when the
// source carries an alpha channel, so icon transparency survives).
//
// PDF first-page rendering and video middle-frame extraction are
// explicitly out of scope for this backend: no PDF-rendering or
// video-frame-extraction library is available anywhere in this module's
// dependency tree, so those sources fail image.Decode and return a Corrupt
// error, which the pipeline turns into the broken-media sentinel.
type PillowBackend struct{}

func NewPillowBackend() *PillowBackend { return &PillowBackend{} }

func (b *PillowBackend) Generate(ctx context.Context, data []byte, sizes map[string]Size) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, galleryerr.Corrupt("thumbnail.Generate", err)
	}

	out := make(map[string][]byte, len(sizes))
	hasAlpha := carriesAlpha(src)

	for name, size := range sizes {
		resized := fitInsideBox(src, size.Width, size.Height)
		encoded, err := encode(resized, hasAlpha)
		if err != nil {
			return nil, galleryerr.Corrupt("thumbnail.Generate", err)
		}
		out[name] = encoded
	}
	return out, nil
}

// fitInsideBox scales src to fit within maxW x maxH, preserving aspect
// ratio, never upscaling beyond the source's own dimensions.
func fitInsideBox(src image.Image, maxW, maxH int) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return src
	}

	scale := minFloat(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	if scale > 1 {
		scale = 1
	}

	dstW := maxInt(1, int(float64(srcW)*scale))
	dstH := maxInt(1, int(float64(srcH)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encode(img image.Image, asPNG bool) ([]byte, error) {
	var buf bytes.Buffer
	if asPNG {
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func carriesAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.Paletted:
		bounds := img.Bounds()
		// Sample corners; a full scan is unnecessary for a "does this
		// source format typically carry transparency" heuristic, and
		// paletted/gif sources are the common icon/transparency case.
		if _, ok := img.(*image.Paletted); ok {
			return true
		}
		for _, pt := range []image.Point{bounds.Min, {bounds.Max.X - 1, bounds.Max.Y - 1}} {
			_, _, _, a := img.At(pt.X, pt.Y).RGBA()
			if a < 0xffff {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Ensure stdlib gif/draw are linked for their Decode/Image side effects
// (gif.Decode registers itself with image.RegisterFormat; draw.Draw is
// used indirectly by some decoders' Paletted conversion paths).
var _ = gif.Decode
var _ = draw.Draw
