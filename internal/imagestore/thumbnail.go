package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"

	"github.com/nfnt/resize"

	"github.com/recera/pinchzoom/internal/cache"
)

// ThumbnailOptions bounds the size of generated thumbnails
type ThumbnailOptions struct {
	Width   uint
	Height  uint
	Quality int
}

func (o ThumbnailOptions) withDefaults() ThumbnailOptions {
	if o.Width == 0 {
		o.Width = 640
	}
	if o.Height == 0 {
		o.Height = 640
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = jpeg.DefaultQuality
	}
	return o
}

func (o ThumbnailOptions) variant() string {
	return fmt.Sprintf("thumb:%dx%d:q%d", o.Width, o.Height, o.Quality)
}

// Thumbnail returns a JPEG thumbnail of the named image, from the cache when
// possible.
func (s *Store) Thumbnail(name string) ([]byte, error) {
	img, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}

	key, err := cache.SourceKey(img.Path, s.thumbs.variant())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			return data, nil
		}
	}

	data, err := MakeThumbnail(img.Path, s.thumbs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(key, data, img.Path); err != nil {
			log.Printf("[ImageStore] Failed to cache thumbnail for %s: %v", name, err)
		}
	}
	return data, nil
}

// MakeThumbnail decodes the image at path and encodes a JPEG that fits within
// the option bounds, keeping the aspect ratio. Images already inside the
// bounds are re-encoded at their own size.
func MakeThumbnail(path string, o ThumbnailOptions) ([]byte, error) {
	o = o.withDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	thumb := resize.Thumbnail(o.Width, o.Height, src, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: o.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
