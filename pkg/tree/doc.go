/*
Package tree keeps the child lists of a tree view stable across refreshes.

A Cache maps the stable key of each domain item to a persistent Wrapper. Every
refresh hands the cache a fresh, ordered list of items; Reconcile returns the
wrappers in the same order, reusing the wrapper of every key it already knew
and constructing wrappers only for keys it has not seen. Keys missing from the
latest list are evicted. Because wrappers survive refreshes, anything a UI
keys on them (selection, expansion, scroll position) survives too.

# Key Types

  - Node: the presentation-capable object a renderer turns into a row.
  - Wrapper: a stable key, the item it currently represents and its Node.
  - Cache: the key -> Wrapper mapping owned by one branch of the tree.

A Cache has a single owner. It is not safe for concurrent Reconcile calls.
*/
package tree
