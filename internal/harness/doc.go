// Package harness runs dashboard scenarios against a real session.
//
// A scenario names a dashboard, a sequence of property changes, and what the
// resulting waves must look like. Each change batch is dispatched as one
// wave through the same dispatcher production sessions use; nothing is
// simulated. Wave ids and sequence numbers come from deterministic
// generators so the recorded trace can be compared against a golden file.
//
// Scenario files are YAML:
//
//	name: lifeexp_submit
//	description: Selecting a country only plots after submit
//	dashboard: lifeexp
//	data:
//	  life: ../testdata/life_expectancy.csv
//	steps:
//	  - name: select
//	    set:
//	      country-dropdown.value: [Japan]
//	    expect:
//	      order: []
//	  - name: submit
//	    set:
//	      submit-button.n_clicks: 1
//	    expect:
//	      outcomes:
//	        update_output: executed
//	assertions:
//	  - type: callback_count
//	    callback: update_output
//	    count: 1
package harness
