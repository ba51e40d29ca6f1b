package avatar

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	// StorageDir is where processed avatars are written
	StorageDir = "uploads/avatars"
	// Size is the edge length of the stored square avatar
	Size = 256
	// JPEGQuality used when encoding the stored avatar
	JPEGQuality = 85
)

// Process reads an uploaded image, applies its EXIF orientation, crops it to
// a centered square and stores it as a JPEG under destDir. Returns the path
// of the stored file for persisting on the user record.
func Process(srcPath, destDir string) (string, error) {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("error opening avatar image: %w", err)
	}

	img = applyOrientation(img, readOrientation(srcPath))
	img = imaging.Fill(img, Size, Size, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("error creating avatar directory: %w", err)
	}

	outPath := filepath.Join(destDir, uuid.New().String()+".jpg")
	if err := imaging.Save(img, outPath, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return "", fmt.Errorf("error saving avatar: %w", err)
	}

	return outPath, nil
}

// readOrientation returns the EXIF orientation tag value, defaulting to 1.
// Most PNG uploads carry no EXIF data at all.
func readOrientation(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 1
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation normalizes pixel data for EXIF orientation values 2-8
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Remove deletes a previously stored avatar file, ignoring missing files
func Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Errorf("[Avatar] Failed to remove old avatar %s: %v", path, err)
	}
}
