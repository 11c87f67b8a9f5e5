/*
Package domain contains the bookmark model the tree is built from.

Bookmarks live in named groups. Each group becomes a branch of the tree and
each bookmark one of its children. The model is pure: storage lives behind
ports.ItemSource and presentation in package view.

# Key Entities

  - Group: a named, ordered collection of bookmarks. One group may be the default.
  - Bookmark: a line in a file, a whole file, or a URL.
  - Kind: which of the three a bookmark is.
*/
package domain
