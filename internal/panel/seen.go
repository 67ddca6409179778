package panel

import (
	"sort"
	"sync"
)

// SeenNames accumulates emitter identifiers observed across all records a
// panel has ever processed. The set is cumulative: it survives topic
// changes (deliberate, matching how the filter bar offers names from every
// stream seen during a session) and only an explicit Reset clears it.
type SeenNames struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func NewSeenNames() *SeenNames {
	return &SeenNames{names: make(map[string]struct{})}
}

// Observe records an emitter name. Empty names are ignored.
func (s *SeenNames) Observe(name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	s.names[name] = struct{}{}
	s.mu.Unlock()
}

// List returns the observed names in sorted order.
func (s *SeenNames) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reset clears the set.
func (s *SeenNames) Reset() {
	s.mu.Lock()
	s.names = make(map[string]struct{})
	s.mu.Unlock()
}

// Len returns the number of distinct names observed.
func (s *SeenNames) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}
