// Package dashspec loads declarative dashboard definitions written in CUE.
//
// A file declares one or more dashboards under the top-level "dashboard"
// field:
//
//	dashboard: electricity: {
//		title: "Electricity Prices by US State"
//		datasets: electricity: source: "electricity.csv"
//		components: {
//			"year-slider": value: {type: "list", from: {dataset: "electricity", column: "Year", op: "extent"}}
//			"map-graph": figure: type: "object"
//		}
//		callbacks: update_map: {
//			handler: "electricity.map"
//			outputs: ["map-graph.figure"]
//			inputs: ["year-slider.value"]
//		}
//	}
//
// Files are unified with an embedded schema before decoding, so structural
// mistakes are reported by CUE with source positions. Handlers are bound by
// name through a Catalog; the declaration never carries code.
package dashspec
