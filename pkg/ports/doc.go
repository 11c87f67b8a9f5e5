/*
Package ports defines the driven ports (interfaces) of the bookmark tree.

These interfaces decouple the tree from where bookmarks are stored, allowing it
to run against memory, a file, Redis or a Loam document repository.

# Key Interfaces

  - ItemSource: lists groups and the ordered bookmarks of a group.
  - ItemStore: an ItemSource that can also be written to.
  - Watchable: sources that can notify which groups changed.
  - DistributedLocker: serializes refreshes of a branch across replicas.
*/
package ports
