// Package dashboards bundles the reference dashboards: their CUE
// declarations and the handlers those declarations name.
//
// Each dashboard lives in specs/<name>.cue. Handler names are prefixed with
// the dashboard they belong to, e.g. "spacex.success_pie".
package dashboards
