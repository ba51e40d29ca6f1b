package avatar

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 200, G: 60, B: 60, A: 255})
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestProcess(t *testing.T) {
	tmp := t.TempDir()
	srcPath := writeTestImage(t, tmp, "source.jpg", 400, 200)

	destDir := filepath.Join(tmp, "avatars")
	outPath, err := Process(srcPath, destDir)
	require.NoError(t, err)
	assert.FileExists(t, outPath)
	assert.Equal(t, ".jpg", filepath.Ext(outPath))

	stored, err := imaging.Open(outPath)
	require.NoError(t, err)
	bounds := stored.Bounds()
	assert.Equal(t, Size, bounds.Dx())
	assert.Equal(t, Size, bounds.Dy())
}

func TestProcess_PortraitSource(t *testing.T) {
	tmp := t.TempDir()
	srcPath := writeTestImage(t, tmp, "tall.png", 100, 500)

	outPath, err := Process(srcPath, filepath.Join(tmp, "avatars"))
	require.NoError(t, err)

	stored, err := imaging.Open(outPath)
	require.NoError(t, err)
	assert.Equal(t, Size, stored.Bounds().Dx())
	assert.Equal(t, Size, stored.Bounds().Dy())
}

func TestProcess_InvalidImage(t *testing.T) {
	tmp := t.TempDir()
	srcPath := filepath.Join(tmp, "not-an-image.jpg")
	require.NoError(t, os.WriteFile(srcPath, []byte("plain text pretending to be a jpeg"), 0644))

	_, err := Process(srcPath, filepath.Join(tmp, "avatars"))
	assert.Error(t, err)
}

func TestProcess_MissingFile(t *testing.T) {
	tmp := t.TempDir()

	_, err := Process(filepath.Join(tmp, "missing.jpg"), filepath.Join(tmp, "avatars"))
	assert.Error(t, err)
}

func TestApplyOrientation(t *testing.T) {
	// 30x10 source, so rotations that swap the axes are easy to spot
	src := imaging.New(30, 10, color.NRGBA{A: 255})

	tests := []struct {
		name        string
		orientation int
		wantWidth   int
		wantHeight  int
	}{
		{name: "normal", orientation: 1, wantWidth: 30, wantHeight: 10},
		{name: "flip horizontal", orientation: 2, wantWidth: 30, wantHeight: 10},
		{name: "rotate 180", orientation: 3, wantWidth: 30, wantHeight: 10},
		{name: "flip vertical", orientation: 4, wantWidth: 30, wantHeight: 10},
		{name: "transpose", orientation: 5, wantWidth: 10, wantHeight: 30},
		{name: "rotate 90 cw", orientation: 6, wantWidth: 10, wantHeight: 30},
		{name: "transverse", orientation: 7, wantWidth: 10, wantHeight: 30},
		{name: "rotate 90 ccw", orientation: 8, wantWidth: 10, wantHeight: 30},
		{name: "unknown value", orientation: 42, wantWidth: 30, wantHeight: 10},
		{name: "zero value", orientation: 0, wantWidth: 30, wantHeight: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := applyOrientation(src, tt.orientation)
			assert.Equal(t, tt.wantWidth, out.Bounds().Dx())
			assert.Equal(t, tt.wantHeight, out.Bounds().Dy())
		})
	}
}

func TestReadOrientation_NoExif(t *testing.T) {
	tmp := t.TempDir()

	// PNG files carry no EXIF block, so the default orientation applies
	srcPath := writeTestImage(t, tmp, "plain.png", 50, 50)
	assert.Equal(t, 1, readOrientation(srcPath))

	// Same for files that do not exist
	assert.Equal(t, 1, readOrientation(filepath.Join(tmp, "missing.jpg")))
}

func TestRemove(t *testing.T) {
	tmp := t.TempDir()
	path := writeTestImage(t, tmp, "old-avatar.jpg", 10, 10)

	Remove(path)
	assert.NoFileExists(t, path)

	// Missing files and empty paths are both fine
	Remove(path)
	Remove("")
}
