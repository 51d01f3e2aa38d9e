package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRegistryFallsBackToNone(t *testing.T) {
	r := New()
	assert.True(t, r.ExistsByExt(NoneExt))
	assert.False(t, r.ExistsByExt(".jpg"))

	ft := r.GetByExt(".jpg")
	assert.Equal(t, NoneExt, ft.Ext)
	assert.True(t, ft.Generic)
}

func TestLoadAndLookup(t *testing.T) {
	r := New()
	r.Load(DefaultSeeds())

	assert.True(t, r.ExistsByExt(".jpg"))
	assert.True(t, r.ExistsByExt("JPG")) // case-insensitive, dot optional

	jpg := r.GetByExt(".jpg")
	assert.True(t, jpg.IsImage)
	assert.Equal(t, "image/jpeg", jpg.Mimetype)

	pdf := r.GetByExt(".pdf")
	assert.True(t, pdf.IsPDF)

	zip := r.GetByExt(".cbz")
	assert.True(t, zip.IsArchive)
}

func TestGetByExtUnknownFallsBackToNone(t *testing.T) {
	r := New()
	r.Load(DefaultSeeds())

	for _, missing := range []string{"", "unknown", ".psd"} {
		ft := r.GetByExt(missing)
		assert.Equal(t, NoneExt, ft.Ext, "ext %q", missing)
	}
}

func TestReloadFromSeedReplacesRegistry(t *testing.T) {
	r := New()
	r.Load(DefaultSeeds())
	assert.True(t, r.ExistsByExt(".jpg"))

	err := r.ReloadFromSeed([]Seed{{Ext: ".foo", Kind: "text"}})
	assert.NoError(t, err)

	assert.False(t, r.ExistsByExt(".jpg"))
	assert.True(t, r.ExistsByExt(".foo"))
	assert.True(t, r.ExistsByExt(NoneExt))
}
