// Package detection infers which colors in a photograph are likely to be
// painted walls.
//
// There is no segmentation here: no edges, no geometry. A pixel is a wall
// candidate purely on statistics of its own color (light and desaturated),
// and the most frequent quantized candidates are reported as dominant wall
// colors. Those colors then act as the mask for recoloring.
//
// # Sampling
//
// Detect inspects roughly SampleTarget pixels by walking the buffer with a
// fixed stride, so cost stays bounded on large photos. Callers usually
// downscale first (imaging.FitWidth).
//
// # Coordinate System
//
// Options.Region uses the buffer's own coordinates:
//   - Origin (0, 0) at top-left corner
//   - Min is inclusive, Max is exclusive
package detection
