package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ImageUpload is an image submitted with a post.
type ImageUpload struct {
	Filename string
	Data     []byte
}

var formatExtensions = map[string]string{
	"gif":  ".gif",
	"jpeg": ".jpg",
	"png":  ".png",
	"webp": ".webp",
}

// inspectImage checks that data decodes as a supported image and returns its
// canonical extension and MIME type.
func inspectImage(data []byte) (ext, contentType string, err error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("decode image: %w", err)
	}
	ext, ok := formatExtensions[format]
	if !ok {
		return "", "", fmt.Errorf("unsupported image format %q", format)
	}
	return ext, "image/" + format, nil
}

func imageKey(ext string) string {
	return "blog_images/" + uuid.NewString() + ext
}
