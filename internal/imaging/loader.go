package imaging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrImageDecode is returned when an image source cannot be read or decoded.
var ErrImageDecode = errors.New("image decode error")

// DefaultMaxWidth bounds the working width of a loaded photo.
const DefaultMaxWidth = 1200

// Source identifies where an image comes from. Exactly one field must be set.
type Source struct {
	// Path is a local file path.
	Path string

	// URL is an http:// or https:// address fetched with a GET request.
	URL string

	// Bytes holds raw encoded image data, e.g. an uploaded file.
	Bytes []byte
}

// SourceFromString treats http(s) addresses as URLs and anything else as a path.
func SourceFromString(s string) Source {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return Source{URL: s}
	}
	return Source{Path: s}
}

// Validate checks that exactly one of Path, URL, or Bytes is set.
func (s Source) Validate() error {
	set := 0
	if s.Path != "" {
		set++
	}
	if s.URL != "" {
		set++
	}
	if len(s.Bytes) > 0 {
		set++
	}
	switch set {
	case 0:
		return fmt.Errorf("%w: empty image source", ErrImageDecode)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: image source must set exactly one of path, url, or bytes", ErrImageDecode)
	}
}

// Key returns the cache key: the path, the URL, or a sha256 digest of the bytes.
func (s Source) Key() string {
	switch {
	case s.Path != "":
		return "file:" + s.Path
	case s.URL != "":
		return "url:" + s.URL
	default:
		sum := sha256.Sum256(s.Bytes)
		return fmt.Sprintf("sha256:%x", sum[:])
	}
}

type cacheEntry struct {
	img    image.Image
	format string
}

// ImageCache provides thread-safe caching of decoded images to avoid redundant
// reads, fetches, and decodes.
//
// Entries are keyed by Source.Key. Once an image is loaded, subsequent Load()
// calls for the same path or URL return the cached copy without I/O. Byte
// sources are decoded on every call and never cached, since the caller already
// holds the data. Callers must treat returned images as read-only; working
// buffers are made with FitWidth.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
type ImageCache struct {
	mu      sync.RWMutex
	images  map[string]cacheEntry
	fetcher *Fetcher
}

// NewImageCache creates an empty cache that fetches URLs with the given
// fetcher. A nil fetcher uses DefaultFetchOptions.
func NewImageCache(fetcher *Fetcher) *ImageCache {
	if fetcher == nil {
		fetcher = NewFetcher(DefaultFetchOptions())
	}
	return &ImageCache{
		images:  make(map[string]cacheEntry),
		fetcher: fetcher,
	}
}

// Load retrieves an image from the cache or decodes it from its source.
//
// Supported formats are PNG, JPEG, GIF, and WebP. Every open, fetch, or decode
// failure wraps ErrImageDecode. If ctx is done by the time decoding finishes,
// the result is discarded and the context error is returned wrapped in
// ErrImageDecode.
func (c *ImageCache) Load(ctx context.Context, src Source) (image.Image, error) {
	entry, err := c.load(ctx, src)
	if err != nil {
		return nil, err
	}
	return entry.img, nil
}

func (c *ImageCache) load(ctx context.Context, src Source) (cacheEntry, error) {
	if err := src.Validate(); err != nil {
		return cacheEntry{}, err
	}
	key := src.Key()

	c.mu.RLock()
	if entry, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	data, err := c.read(ctx, src)
	if err != nil {
		return cacheEntry{}, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return cacheEntry{}, fmt.Errorf("%w: failed to decode image: %w", ErrImageDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return cacheEntry{}, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}

	entry := cacheEntry{img: img, format: format}
	if len(src.Bytes) > 0 {
		return entry, nil
	}
	c.mu.Lock()
	c.images[key] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *ImageCache) read(ctx context.Context, src Source) ([]byte, error) {
	switch {
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open image: %w", ErrImageDecode, err)
		}
		return data, nil
	case src.URL != "":
		data, err := c.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch image: %w", ErrImageDecode, err)
		}
		return data, nil
	default:
		return src.Bytes, nil
	}
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Evict removes a specific source from the cache.
//
// If the source is not cached, this method does nothing.
func (c *ImageCache) Evict(src Source) {
	c.mu.Lock()
	delete(c.images, src.Key())
	c.mu.Unlock()
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image.
type ImageInfo struct {
	// Width is the decoded image width in pixels.
	Width int `json:"width"`

	// Height is the decoded image height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg", "gif", or "webp".
	Format string `json:"format"`

	// HasAlpha indicates whether the decoded type carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`
}

// LoadImageInfo loads an image into the cache (if not already cached) and
// returns its metadata.
func LoadImageInfo(ctx context.Context, cache *ImageCache, src Source) (*ImageInfo, error) {
	entry, err := cache.load(ctx, src)
	if err != nil {
		return nil, err
	}

	hasAlpha := false
	switch entry.img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
		hasAlpha = true
	}

	bounds := entry.img.Bounds()
	return &ImageInfo{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Format:   entry.format,
		HasAlpha: hasAlpha,
	}, nil
}

// FitWidth returns a new NRGBA pixel buffer of img, downscaled with Lanczos
// resampling when it is wider than maxWidth. Aspect ratio is preserved. A
// maxWidth of zero or less disables downscaling.
//
// The result never shares memory with img, so it can be handed to callers
// that keep the original for comparison.
func FitWidth(img image.Image, maxWidth int) *image.NRGBA {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return imaging.Clone(img)
}
