/*
Package stages provides the built-in pipeline stages of the bookmark tree.

  - KindFilter keeps only some bookmark kinds.
  - Sort orders entries by name, path or line.
  - OwningGroup annotates entries with the group they are shown in.
  - FileGrouping nests line bookmarks under a row for their file.

Build assembles a registry from configuration entries.
*/
package stages
