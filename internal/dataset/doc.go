// Package dataset holds immutable, typed tabular datasets and the process-wide
// Store that shares them across sessions.
//
// A Dataset is an ordered sequence of rows aligned to a fixed Schema. Every
// row carries every schema column; missing cells are value.Absent. Datasets
// are never mutated after construction, so filtered views share row storage
// with their parent and concurrent readers need no locking.
//
// Loading goes through a Source, which yields a Frame of raw cells. Text
// frames (CSV, XLSX) have their column types inferred from observed values;
// record frames (YAML, JSON, Go literals) carry typed cells that must agree
// on one kind per column.
package dataset
