package scroll

import "sync"

// Viewport is the scrollable surface the controller manipulates. The TUI
// message view implements it; tests use a fake.
type Viewport interface {
	// ContentHeight returns the total scrollable content height.
	ContentHeight() int
	// ViewportHeight returns the visible height.
	ViewportHeight() int
	// Offset returns the current scroll offset from the top.
	Offset() int
	// SetOffset scrolls to the given offset from the top.
	SetOffset(int)
	// ScrollToEnd snaps the viewport to the newest content.
	ScrollToEnd()
}

// Controller applies the anchoring rules around window mutations. Callers
// bracket every mutation with BeforeMutation and the matching After hook so
// decisions are made against pre-mutation geometry.
type Controller struct {
	vp        Viewport
	threshold int
	loadOlder func()

	mu         sync.Mutex
	prevHeight int
	prevOffset int
	wasBottom  bool
}

// NewController creates a controller. threshold is the near-bottom distance
// within which live messages auto-scroll; loadOlder is invoked when the
// user reaches the top edge.
func NewController(vp Viewport, threshold int, loadOlder func()) *Controller {
	return &Controller{
		vp:        vp,
		threshold: threshold,
		loadOlder: loadOlder,
	}
}

// BeforeMutation records the viewport geometry ahead of a content change.
func (c *Controller) BeforeMutation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prevHeight = c.vp.ContentHeight()
	c.prevOffset = c.vp.Offset()
	c.wasBottom = NearBottom(c.prevHeight, c.prevOffset, c.vp.ViewportHeight(), c.threshold)
}

// AfterInitialLoad snaps to the newest message.
func (c *Controller) AfterInitialLoad() {
	c.vp.ScrollToEnd()
}

// AfterLiveAppend auto-scrolls only if the viewport was already near the
// bottom before the append; otherwise the reading position is left alone.
func (c *Controller) AfterLiveAppend() {
	c.mu.Lock()
	wasBottom := c.wasBottom
	c.mu.Unlock()
	if wasBottom {
		c.vp.ScrollToEnd()
	}
}

// AfterPrepend applies the corrective offset so the message previously at
// the top of the viewport stays at the same visual position despite older
// content inserted above it. Must run before the next paint.
func (c *Controller) AfterPrepend() {
	c.mu.Lock()
	oldHeight := c.prevHeight
	oldOffset := c.prevOffset
	c.mu.Unlock()
	c.vp.SetOffset(Correction(oldHeight, c.vp.ContentHeight(), oldOffset))
}

// OnScroll is invoked on every user scroll; reaching the top edge requests
// the previous page. The window's own guards keep this from issuing
// concurrent or redundant fetches.
func (c *Controller) OnScroll() {
	if AtTop(c.vp.Offset()) && c.loadOlder != nil {
		c.loadOlder()
	}
}
