// Package query implements the stateless tabular operations handlers run
// against datasets: predicate filters, conjunction, group-by mean and
// frequency counts.
//
// Every operation returns a new dataset or result slice and never mutates
// its input. Filters are stable: surviving rows keep their original relative
// order. An empty result is a valid outcome, never an error.
//
// Predicates are validated against the dataset schema before any row is
// visited, so a bad column or an inverted range fails even on an empty
// dataset.
package query
