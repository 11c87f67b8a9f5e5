/*
Package pipeline computes the visible children of a tree branch.

A Runner fetches the branch items from a Source, drops the ones the branch's
presentation context hides, reconciles the rest through the branch's
tree.Cache and folds the resulting wrappers through every Stage of a Registry.

Stages run by descending priority. Stages with equal priority run in the order
they were registered, on every run. A stage that fails or panics is skipped:
its output is discarded and the next stage receives the list the failing stage
was given. Only a failed fetch (ErrItemFetch) or a broken cache invariant fails
the whole computation.
*/
package pipeline
