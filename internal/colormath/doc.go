// Package colormath provides hex/RGB conversion and the two color distances
// shared by recoloring and paint matching.
//
// # Distances
//
// EuclideanDistance is the plain RGB distance used by the recolor renderer to
// decide which pixels belong to a mask color. WeightedDistance biases the
// channels (2·r, 4·g, 3·b) and is the only distance used to rank paint
// products. Both are symmetric and zero only for identical colors.
//
// # Hex Format
//
// Inputs accept "#RRGGBB" or "RRGGBB" in any case. Outputs are always the
// canonical lowercase "#rrggbb". Anything else fails with
// ErrInvalidColorFormat; there is no fallback color.
package colormath
