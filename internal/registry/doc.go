// Package registry holds the component property state of one session.
//
// Each component declares its properties up front with a kind and an initial
// value. Writes are type-checked against the declaration; Absent is always
// accepted. The dispatcher is the only writer once a session is running.
package registry
