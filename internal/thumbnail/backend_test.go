package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPillowBackendGeneratesAllRequestedSizes(t *testing.T) {
	data := solidPNG(t, 400, 300, color.White)
	backend := NewPillowBackend()

	out, err := backend.Generate(context.Background(), data, map[string]Size{
		"small":  {Width: 200, Height: 200},
		"medium": {Width: 740, Height: 740},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NotEmpty(t, out["small"])
	assert.NotEmpty(t, out["medium"])
}

func TestFitInsideBoxNeverUpscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 40))
	dst := fitInsideBox(src, 200, 200)
	assert.Equal(t, 50, dst.Bounds().Dx())
	assert.Equal(t, 40, dst.Bounds().Dy())
}

func TestFitInsideBoxPreservesAspectRatio(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))
	dst := fitInsideBox(src, 200, 200)
	assert.Equal(t, 200, dst.Bounds().Dx())
	assert.Equal(t, 100, dst.Bounds().Dy())
}

func TestGenerateCorruptDataReturnsError(t *testing.T) {
	backend := NewPillowBackend()
	_, err := backend.Generate(context.Background(), []byte("not an image"), map[string]Size{
		"small": {Width: 200, Height: 200},
	})
	assert.Error(t, err)
}

func TestCarriesAlphaDetectsPaletted(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), []color.Color{color.White, color.Black})
	assert.True(t, carriesAlpha(img))
}

func TestCarriesAlphaFalseForOpaqueRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	assert.False(t, carriesAlpha(img))
}
