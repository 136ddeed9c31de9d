// Package exportlog maintains the build-time export document: a JSON array
// of records describing every exported type and function, shared by all
// code generation runs of one build.
//
// Generation may run for many packages at once, in goroutines or in
// separate processes. Each run opens its own Channel; an exclusive file
// lock (flock on unix, LockFileEx on windows) serializes the
// read-modify-write so no record is lost.
package exportlog
