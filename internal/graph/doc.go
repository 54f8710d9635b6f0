// Package graph declares callbacks and builds the dependency graph the
// dispatcher walks.
//
// A callback names the properties it writes (outputs), the properties whose
// change re-runs it (triggers) and the properties it only reads (state).
// Every output has exactly one owning callback. An edge runs from callback A
// to callback B when A writes a property B lists as a trigger. State reads
// never create edges.
//
// The graph is built once: Build checks for cycles, fixes a topological rank
// for every callback and seals the graph. A sealed graph is immutable and
// safe for concurrent readers.
package graph
