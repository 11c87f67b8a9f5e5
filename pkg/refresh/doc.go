/*
Package refresh serializes and coalesces branch refreshes.

A Coordinator runs at most one refresh per branch at a time, optionally across
replicas through a ports.DistributedLocker, and folds repeated refresh requests
for the same branch into one pending entry.
*/
package refresh
