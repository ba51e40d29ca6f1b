package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImageBySniff(t *testing.T) {
	pngHead := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	jpegHead := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}
	gifHead := []byte("GIF89a......")

	tests := []struct {
		name     string
		filename string
		head     []byte
		wantMime string
		wantErr  string
	}{
		{
			name:     "valid png",
			filename: "avatar.png",
			head:     pngHead,
			wantMime: "image/png",
		},
		{
			name:     "valid jpeg",
			filename: "photo.JPG",
			head:     jpegHead,
			wantMime: "image/jpeg",
		},
		{
			name:     "valid gif",
			filename: "anim.gif",
			head:     gifHead,
			wantMime: "image/gif",
		},
		{
			name:     "disallowed extension",
			filename: "avatar.svg",
			head:     pngHead,
			wantErr:  "Only the following image formats are supported",
		},
		{
			name:     "no extension",
			filename: "avatar",
			head:     pngHead,
			wantErr:  "Only the following image formats are supported",
		},
		{
			name:     "html content with image extension",
			filename: "sneaky.png",
			head:     []byte("<html><body><script>alert(1)</script></body></html>"),
			wantErr:  "HTML content is not allowed",
		},
		{
			name:     "xml content with image extension",
			filename: "sneaky.jpg",
			head:     []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`),
			wantErr:  "SVG/XML uploads are not supported",
		},
		{
			name:     "text content with image extension",
			filename: "notes.jpg",
			head:     []byte("just some plain text, nothing image-like here"),
			wantErr:  "The file type is not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := ValidateImageBySniff(tt.filename, tt.head)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantMime, mime)
		})
	}
}

func TestValidateImageBySniff_OctetStreamFallback(t *testing.T) {
	// Opaque binary data sniffs as application/octet-stream and is
	// accepted when the extension is whitelisted
	binaryHead := []byte{0x00, 0x01, 0x02, 0x03, 0xAA, 0xBB, 0xCC, 0xDD}

	mime, err := ValidateImageBySniff("raw.bmp", binaryHead)
	assert.NoError(t, err)
	assert.Equal(t, "application/octet-stream", mime)
}
