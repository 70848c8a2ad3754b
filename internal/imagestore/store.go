// Package imagestore serves a directory of high resolution images: it knows
// their natural sizes and produces cached JPEG thumbnails for the initial page.
package imagestore

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/recera/pinchzoom/internal/cache"
	"github.com/recera/pinchzoom/pkg/zoom"
)

// ErrNotFound is returned for names that are not a known image
var ErrNotFound = errors.New("image not found")

// extensions lists the file types registered with the image package
var extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Supported reports whether the file name has an image extension the store reads
func Supported(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Image describes one source image
type Image struct {
	// Name is the slash separated path relative to the store directory
	Name    string
	Path    string
	Format  string
	Size    int64
	ModTime time.Time
	Metrics zoom.ImageMetrics
}

// Store indexes the images below a directory
type Store struct {
	dir    string
	cache  *cache.Cache
	thumbs ThumbnailOptions

	mu     sync.RWMutex
	images map[string]*Image
}

// Open scans dir for images. c may be nil to disable thumbnail caching.
func Open(dir string, c *cache.Cache, thumbs ThumbnailOptions) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open image directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open image directory: %s is not a directory", abs)
	}

	s := &Store{
		dir:    abs,
		cache:  c,
		thumbs: thumbs.withDefaults(),
		images: make(map[string]*Image),
	}
	if err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the absolute image directory
func (s *Store) Dir() string {
	return s.dir
}

// Rescan rebuilds the index from disk
func (s *Store) Rescan() error {
	images := make(map[string]*Image)
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(p) {
			return nil
		}
		img, err := describe(s.dir, p)
		if err != nil {
			log.Printf("[ImageStore] Skipping %s: %v", p, err)
			return nil
		}
		images[img.Name] = img
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", s.dir, err)
	}

	s.mu.Lock()
	s.images = images
	s.mu.Unlock()
	return nil
}

// DescribeFile reads the header of a single image file outside any store
func DescribeFile(p string) (Image, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return Image{}, fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	img, err := describe(filepath.Dir(abs), abs)
	if err != nil {
		return Image{}, fmt.Errorf("failed to describe %s: %w", p, err)
	}
	return *img, nil
}

// describe stats and header-decodes one file
func describe(root, p string) (*Image, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	return &Image{
		Name:    filepath.ToSlash(rel),
		Path:    p,
		Format:  format,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Metrics: zoom.ImageMetrics{
			NaturalWidth:  float64(cfg.Width),
			NaturalHeight: float64(cfg.Height),
		},
	}, nil
}

// List returns every image sorted by name
func (s *Store) List() []Image {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, *img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the image registered under name
func (s *Store) Lookup(name string) (Image, error) {
	name = path.Clean("/" + name)[1:]

	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[name]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return *img, nil
}

// Metrics returns the natural size of an image
func (s *Store) Metrics(name string) (zoom.ImageMetrics, error) {
	img, err := s.Lookup(name)
	if err != nil {
		return zoom.ImageMetrics{}, err
	}
	return img.Metrics, nil
}

// Invalidate refreshes the entry for an absolute file path after it changed
// on disk and drops cached thumbnails built from it. It returns the image
// name, or "" when the path is outside the store or is not an image.
func (s *Store) Invalidate(p string) string {
	rel, err := filepath.Rel(s.dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	name := filepath.ToSlash(rel)

	if s.cache != nil {
		if n := s.cache.InvalidateSource(p); n > 0 {
			log.Printf("[ImageStore] Dropped %d cached thumbnails for %s", n, name)
		}
	}

	var img *Image
	if Supported(p) {
		img, err = describe(s.dir, p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[ImageStore] Cannot read %s: %v", name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if img != nil {
		s.images[name] = img
		return name
	}

	_, known := s.images[name]
	delete(s.images, name)
	// p may have been a directory
	for n := range s.images {
		if strings.HasPrefix(n, name+"/") {
			delete(s.images, n)
			known = true
		}
	}
	if !known && !Supported(p) {
		return ""
	}
	return name
}
