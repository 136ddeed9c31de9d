// Package config resolves generator settings for a Go module.
//
// Settings come from three layers, later ones winning: built-in defaults,
// an optional nucleus.toml next to go.mod, and NUCLEUS_* environment
// variables.
//
//	[export]
//	path = "build/nucleus/exports.json"
//	enabled = true
//
//	[cache]
//	dir = "build/nucleus/cache"
//	enabled = true
//
//	[generate]
//	jobs = 4
//	output = "nucleus_gen.go"
//	exports_file = "nucleus_exports.go"
//
// Relative paths resolve against the module root.
package config
