package tree

import "maps"

// Wrapper pairs a stable key with the item it represents and the Node built for it.
//
// The represented item is rebound only by the Cache. Pipeline stages may set the
// owning group and annotations, but never replace the wrapper itself.
type Wrapper[K comparable, I any] struct {
	key   K
	item  I
	node  Node
	group string
	notes map[string]string
}

// NewWrapper creates a wrapper that is not owned by any cache.
// Stages use it for entries they insert themselves.
func NewWrapper[K comparable, I any](key K, item I, node Node) *Wrapper[K, I] {
	return &Wrapper[K, I]{key: key, item: item, node: node}
}

// Key returns the stable key.
func (w *Wrapper[K, I]) Key() K {
	return w.key
}

// Item returns the item the wrapper currently represents.
func (w *Wrapper[K, I]) Item() I {
	return w.item
}

// Node returns the presentation-capable object.
func (w *Wrapper[K, I]) Node() Node {
	return w.node
}

// Group returns the owning group annotation.
func (w *Wrapper[K, I]) Group() string {
	return w.group
}

// SetGroup sets the owning group annotation.
func (w *Wrapper[K, I]) SetGroup(group string) {
	w.group = group
}

// Annotation returns the value stored under name, if any.
func (w *Wrapper[K, I]) Annotation(name string) (string, bool) {
	v, ok := w.notes[name]
	return v, ok
}

// Annotate stores a value under name.
func (w *Wrapper[K, I]) Annotate(name, value string) {
	if w.notes == nil {
		w.notes = make(map[string]string)
	}
	w.notes[name] = value
}

// SaveMarks records the owning group and annotations of ws. The returned
// function puts them back, discarding whatever was set on those wrappers since.
func SaveMarks[K comparable, I any](ws []*Wrapper[K, I]) (restore func()) {
	type marks struct {
		group string
		notes map[string]string
	}
	saved := make([]marks, len(ws))
	for i, w := range ws {
		saved[i] = marks{group: w.group, notes: maps.Clone(w.notes)}
	}
	return func() {
		for i, w := range ws {
			w.group = saved[i].group
			w.notes = saved[i].notes
		}
	}
}

// rebind points the wrapper at a newer instance of the same item.
// If the node tracks its item, it is rebound as well.
func (w *Wrapper[K, I]) rebind(item I) {
	w.item = item
	if b, ok := w.node.(Rebinder[I]); ok {
		b.Rebind(item)
	}
}

// Rebinder is implemented by nodes that render from the item they were built for.
type Rebinder[I any] interface {
	Rebind(item I)
}
