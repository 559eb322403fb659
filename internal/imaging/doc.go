// Package imaging provides the pixel-buffer side of recoloring: loading and
// decoding image sources, downscaling to a working width, recoloring, and
// encoding previews.
//
// # Pixel Buffers
//
// A pixel buffer is an *image.NRGBA: a rectangular, row-major grid with four
// non-premultiplied bytes (R, G, B, A) per pixel. FitWidth produces one from
// any decoded image. Every operation in this package returns a new buffer and
// leaves its input untouched, so an original can always be kept for
// before/after comparison or reset.
//
// # Image Sources
//
// A Source is a file path, an http(s) URL, or raw bytes. ImageCache decodes
// PNG, JPEG, GIF, and WebP and caches the decoded image per source. Failures
// wrap ErrImageDecode.
//
// # Recoloring
//
// Recolor dispatches to one of three renderers:
//   - OverlayMasked: pixels within Tolerance of any mask color blend toward
//     the target by Opacity
//   - ReplaceFeathered: the blend factor falls off with distance over the
//     feather band
//   - OverlayGlobal: every opaque pixel blends at Opacity*0.3, used when no
//     mask colors were detected
//
// Out-of-range settings fail with ErrInvalidSettings; a nil buffer fails with
// ErrNoImageLoaded.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The renderers are pure functions of
// their inputs and may run concurrently on shared read-only buffers.
//
// # Encoding
//
// EncodeBase64 serializes a buffer as JPEG (quality 90 by default) or PNG for
// transport in JSON responses.
package imaging
