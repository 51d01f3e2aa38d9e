package thumbnail

import (
	"image"
	"image/color"
	"sync"
)

var (
	brokenMediaOnce sync.Once
	brokenMediaData []byte
)

// brokenMediaThumbnail returns a small solid-gray JPEG written to all
// three slots of a record when its source is corrupt, undecodable, or an
// unsupported kind (spec.md §4.4.5, "write a sentinel broken media
// thumbnail ... do not retry"). Built once per process since the pixels
// never change.
func brokenMediaThumbnail() []byte {
	brokenMediaOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		gray := color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
		for y := 0; y < img.Bounds().Dy(); y++ {
			for x := 0; x < img.Bounds().Dx(); x++ {
				img.Set(x, y, gray)
			}
		}
		encoded, err := encode(img, false)
		if err != nil {
			return
		}
		brokenMediaData = encoded
	})
	return brokenMediaData
}

// withBrokenSentinel returns a copy of r with every slot set to the
// broken-media sentinel.
func (r Record) withBrokenSentinel() Record {
	sentinel := brokenMediaThumbnail()
	r.Small = sentinel
	r.Medium = sentinel
	r.Large = sentinel
	return r
}
