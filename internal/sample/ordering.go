package sample

import (
	"sort"

	"padscan/pkg/geometry"
)

// ReadingOrder returns a permutation of indices into centers sorted by
// ascending y, ties broken by ascending x. Zone ids follow this order,
// so a grid of zones numbers left to right, top to bottom.
func ReadingOrder(centers []geometry.Point2D) []int {
	perm := make([]int, len(centers))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ca, cb := centers[perm[a]], centers[perm[b]]
		if ca.Y != cb.Y {
			return ca.Y < cb.Y
		}
		return ca.X < cb.X
	})
	return perm
}

// Reorder returns items permuted so that out[k] = items[perm[k]].
func Reorder[T any](perm []int, items []T) []T {
	out := make([]T, len(perm))
	for k, i := range perm {
		out[k] = items[i]
	}
	return out
}
