package tree

// Presentation is what a renderer needs to draw one row.
type Presentation struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
	Hint string `json:"hint,omitempty"`
}

// Node is the presentation-capable object carried by a Wrapper.
type Node interface {
	Presentation() Presentation
}

// Parent is a Node with nested rows of its own.
type Parent interface {
	Node
	Children() []Node
}

// Disposable nodes are released when their wrapper leaves the cache.
type Disposable interface {
	Dispose()
}

// Dispose releases the node of every wrapper that implements Disposable.
func Dispose[K comparable, I any](wrappers []*Wrapper[K, I]) {
	for _, w := range wrappers {
		if d, ok := w.node.(Disposable); ok {
			d.Dispose()
		}
	}
}
