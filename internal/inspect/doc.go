// Package inspect loads compiled guest modules on the host with wazero and
// drives their boundary exports: it reads the published schema through
// __nucleus_abi and invokes exposed functions with SCALE-encoded arguments.
//
// Imports other than WASI preview1 are satisfied by stubs that fail when
// called, so schema extraction works for modules built against any host.
package inspect
