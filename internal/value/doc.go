// Package value provides the tagged-union value type shared by datasets,
// component properties and render payloads.
//
// This package contains value definitions only. Every other internal package
// imports value; value imports nothing internal.
//
// Key design constraints:
//   - Missing cells and unset properties are an explicit Absent, never nil
//   - Scalars (Number, String, Date, Bool) are the only dataset cell kinds
//   - List and Object carry structured property values such as click
//     descriptors and render payloads
//   - Canonical JSON sorts object keys by UTF-16 code units and NFC-normalizes
//     strings, so equal values always serialize to identical bytes
package value
