package panel

// Viewport is the scrollable surface a Follower drives. Implementations
// deliver scroll events back through Follower.OnScroll.
type Viewport interface {
	ScrollToBottom()
}

// Follower keeps a viewport pinned to its newest content until the user
// scrolls away, and resumes only on an explicit jump-to-bottom action.
//
// It distinguishes programmatic scrolls from manual ones with a one-shot
// flag: the flag is set immediately before each programmatic scroll and
// cleared by the next scroll-event delivery, so that event is not misread
// as the user taking over.
//
// Follower is not goroutine-safe; the owning panel serializes all events.
type Follower struct {
	viewport Viewport
	paused   bool
	pending  bool // one-shot: next scroll event is ours
}

// NewFollower starts in the following state. A nil viewport is allowed:
// scroll operations are silently skipped until one is attached.
func NewFollower(v Viewport) *Follower {
	return &Follower{viewport: v}
}

// Attach binds the viewport. Pending state is kept: an attach mid-session
// does not change whether the user has scrolled away.
func (f *Follower) Attach(v Viewport) { f.viewport = v }

// Detach unbinds the viewport; subsequent scroll operations are no-ops.
func (f *Follower) Detach() { f.viewport = nil }

// Following reports whether the viewport tracks the newest record.
func (f *Follower) Following() bool { return !f.paused }

// JumpControlVisible reports whether the jump-to-bottom affordance should
// be shown: exactly when the user has scrolled away.
func (f *Follower) JumpControlVisible() bool { return f.paused }

// OnNewContent is called when new visible records arrive. While following
// it issues one programmatic scroll-to-bottom; while paused it does nothing.
func (f *Follower) OnNewContent() {
	if f.paused {
		return
	}
	f.scrollToBottom()
}

// OnScroll handles a scroll event delivered by the viewport. A programmatic
// scroll consumes the one-shot flag; anything else is the user taking over.
func (f *Follower) OnScroll() {
	if f.pending {
		f.pending = false
		return
	}
	f.paused = true
}

// JumpToBottom is the explicit user action that resumes following. It also
// immediately performs one programmatic scroll-to-bottom.
func (f *Follower) JumpToBottom() {
	f.paused = false
	f.scrollToBottom()
}

func (f *Follower) scrollToBottom() {
	if f.viewport == nil {
		return
	}
	// Flag first, then mutate, so the resulting event is attributed to us.
	f.pending = true
	f.viewport.ScrollToBottom()
}
