// Package session ties one dashboard declaration to live state.
//
// A Session owns exactly one component registry, one sealed callback graph
// and one dispatcher. The only thing sessions share is the dataset store,
// which must be sealed before the first session is built and is never
// mutated afterwards. A Manager keys concurrent sessions by UUIDv7.
package session
