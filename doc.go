// Package rxfsm provides reactive state machines that are themselves
// stream components.
//
// The machine runtime is in package 'core'.  Package 'spec' reads
// machine definitions written in YAML, 'drivers' connects machines to
// the world, and the command-line tool is in `cmd/rxfsm`.
package rxfsm
