package graphstore

// Style is the per-element presentation state the filter engine mutates.
// Colors are hex strings so they serialize cleanly and map directly onto
// both terminal and SVG renderers.
type Style struct {
	Opacity     float64 `json:"opacity"`
	Color       string  `json:"color,omitempty"`
	BorderColor string  `json:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
}

// DefaultStyle is the style of an element that has never been restyled.
func DefaultStyle() Style {
	return Style{Opacity: 1}
}

// StyleOf returns the current style of the element, falling back to the
// default when none has been set.
func (s *Store) StyleOf(id string) Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.styles[id]; ok {
		return st
	}
	return DefaultStyle()
}

// SetStyle overrides the style of one element.
func (s *Store) SetStyle(id string, st Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, isNode := s.nodes[id]
	_, isEdge := s.edges[id]
	if !isNode && !isEdge {
		return
	}
	s.styles[id] = st
}

// CaptureBaseStyles snapshots the current style of every element. The
// snapshot is taken at most once: it is the restoration target for
// returning to the unfiltered state, so later filter applications must
// not overwrite it. Elements added after capture restore to the default.
func (s *Store) CaptureBaseStyles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCaptured {
		return
	}
	s.baseCaptured = true
	for _, id := range s.order {
		if st, ok := s.styles[id]; ok {
			s.base[id] = st
		} else {
			s.base[id] = DefaultStyle()
		}
	}
}

// BaseCaptured reports whether a base-style snapshot exists.
func (s *Store) BaseCaptured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCaptured
}

// RestoreBaseStyles puts every element back to its captured pre-filter
// style and discards the snapshot so the next filter pass captures anew.
func (s *Store) RestoreBaseStyles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.baseCaptured {
		return
	}
	s.styles = make(map[string]Style, len(s.base))
	for id, st := range s.base {
		_, isNode := s.nodes[id]
		_, isEdge := s.edges[id]
		if !isNode && !isEdge {
			continue
		}
		s.styles[id] = st
	}
	s.base = make(map[string]Style)
	s.baseCaptured = false
}
