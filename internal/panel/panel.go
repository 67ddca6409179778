package panel

import (
	"sync"

	"github.com/jasmine-z2a/studio/internal/model"
)

// Panel holds the per-viewport state of the log pipeline: the selected
// topic, the filter spec, the emitter names seen so far, and the
// autoscroll follower. One Panel per connected viewport session.
//
// All reactions run to completion under one mutex, the Go analog of the
// single-threaded event model the pipeline was designed for: a new-record
// batch, a filter change, and a scroll event never interleave.
type Panel struct {
	mu sync.Mutex

	registry     *Registry
	defaultTopic string

	explicitTopic string
	spec          model.FilterSpec
	seen          *SeenNames
	follower      *Follower
}

// New creates a panel with an empty filter, no explicit topic selection,
// and a follower in the following state.
func New(registry *Registry, defaultTopic string) *Panel {
	if defaultTopic == "" {
		defaultTopic = DefaultTopic
	}
	return &Panel{
		registry:     registry,
		defaultTopic: defaultTopic,
		seen:         NewSeenNames(),
		follower:     NewFollower(nil),
	}
}

// AttachViewport binds the scroll surface for this panel.
func (p *Panel) AttachViewport(v Viewport) {
	p.mu.Lock()
	p.follower.Attach(v)
	p.mu.Unlock()
}

// Topic resolves the topic to render against the current catalog.
func (p *Panel) Topic(topics []model.TopicDescriptor) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SelectTopic(topics, p.registry.Datatypes(), p.explicitTopic, p.defaultTopic)
}

// SetTopic records an explicit topic choice. Seen names are deliberately
// kept across topic changes.
func (p *Panel) SetTopic(name string) {
	p.mu.Lock()
	p.explicitTopic = name
	p.mu.Unlock()
}

// SetFilter replaces the filter spec wholesale.
func (p *Panel) SetFilter(spec model.FilterSpec) {
	p.mu.Lock()
	p.spec = spec
	p.mu.Unlock()
}

// Filter returns the current filter spec.
func (p *Panel) Filter() model.FilterSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spec
}

// Config returns the wholesale-persistable view of the panel state.
func (p *Panel) Config() model.PanelConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.PanelConfig{
		SearchTerms:   append([]string(nil), p.spec.SearchTerms...),
		MinLogLevel:   int(p.spec.MinLevel),
		TopicToRender: p.explicitTopic,
	}
}

// Restore applies a persisted config.
func (p *Panel) Restore(cfg model.PanelConfig) {
	p.mu.Lock()
	p.spec = cfg.Spec()
	p.explicitTopic = cfg.TopicToRender
	p.mu.Unlock()
}

// Visible recomputes the full visible subsequence from a history
// snapshot, observing emitter names along the way.
func (p *Panel) Visible(history []model.LogRecord) []model.LogRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range history {
		p.seen.Observe(r.Name)
	}
	return Apply(history, p.spec)
}

// HandleNewRecords reacts to a batch of newly arrived records on the
// selected topic: names accumulate for every record, the filtered
// subsequence is returned for rendering, and the follower scrolls the
// viewport when anything became visible.
func (p *Panel) HandleNewRecords(batch []model.LogRecord) []model.LogRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range batch {
		p.seen.Observe(r.Name)
	}
	visible := Apply(batch, p.spec)
	if len(visible) > 0 {
		p.follower.OnNewContent()
	}
	return visible
}

// HandleScroll forwards a viewport scroll event to the follower.
func (p *Panel) HandleScroll() {
	p.mu.Lock()
	p.follower.OnScroll()
	p.mu.Unlock()
}

// JumpToBottom resumes following and scrolls immediately.
func (p *Panel) JumpToBottom() {
	p.mu.Lock()
	p.follower.JumpToBottom()
	p.mu.Unlock()
}

// JumpControlVisible reports whether the jump-to-bottom affordance shows.
func (p *Panel) JumpControlVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.follower.JumpControlVisible()
}

// SeenNames returns the sorted emitter names observed by this panel.
func (p *Panel) SeenNames() []string {
	return p.seen.List()
}
