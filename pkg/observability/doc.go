/*
Package observability exports pipeline activity as Prometheus metrics.

Metrics.Hooks returns pipeline.Hooks that feed the collectors, so the same
events that drive logging also drive the counters. Merge them with other hooks
through pipeline.MergeHooks.
*/
package observability
