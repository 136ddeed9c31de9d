// Package gencache remembers the output of generating a package, keyed by a
// digest of its sources, so unchanged packages skip parsing and rendering.
// Cached entries also keep the export records of the run so they can be
// replayed into a fresh export document.
package gencache
