package feature

// Labels is an ordered set of features. Position i names column i of a design
// row and coefficient i of a fitted linear model.
type Labels struct {
	feats []Feature
	names []string
	pos   map[string]int
}

// NewLabels copies feats. A repeated name resolves to its first position.
func NewLabels(feats []Feature) *Labels {
	l := &Labels{
		feats: make([]Feature, len(feats)),
		names: make([]string, len(feats)),
		pos:   make(map[string]int, len(feats)),
	}
	copy(l.feats, feats)
	for i, f := range feats {
		name := f.String()
		l.names[i] = name
		if _, seen := l.pos[name]; !seen {
			l.pos[name] = i
		}
	}
	return l
}

func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.feats)
}

// Labels returns a copy of the features in order
func (l *Labels) Labels() []Feature {
	if l == nil {
		return nil
	}
	out := make([]Feature, len(l.feats))
	copy(out, l.feats)
	return out
}

// Strings returns the feature names in order
func (l *Labels) Strings() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Index returns the position of the feature with the same name
func (l *Labels) Index(f Feature) (int, bool) {
	if l == nil {
		return -1, false
	}
	i, ok := l.pos[f.String()]
	if !ok {
		return -1, false
	}
	return i, true
}
