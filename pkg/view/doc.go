// Package view holds the presentation nodes of the bookmark tree.
package view
