// Package scroll keeps the user's reading position stable while the
// message window mutates underneath the viewport. The math is pure and
// layout-agnostic; Controller binds it to a concrete viewport.
package scroll

// Correction computes the scroll offset that keeps previously visible
// content stationary after content of height newHeight-oldHeight was
// inserted above the viewport.
func Correction(oldHeight, newHeight, oldOffset int) int {
	return oldOffset + (newHeight - oldHeight)
}

// NearBottom reports whether the viewport bottom edge is within threshold
// of the content end. Auto-scroll on live messages is gated on this so a
// user reading history is not yanked to the bottom.
func NearBottom(contentHeight, offset, viewportHeight, threshold int) bool {
	return contentHeight-offset-viewportHeight < threshold
}

// AtTop reports whether the viewport is scrolled to the very top, the
// trigger position for backward pagination.
func AtTop(offset int) bool {
	return offset <= 0
}
