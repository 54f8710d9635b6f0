package dashboards

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/value"
)

//go:embed specs/*.cue
var specs embed.FS

// Names returns the bundled dashboard names in ascending order.
func Names() []string {
	entries, err := fs.ReadDir(specs, "specs")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".cue"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load parses the bundled dashboard with the given name.
func Load(name string) (*dashspec.Dashboard, error) {
	file := "specs/" + name + ".cue"
	data, err := specs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unknown dashboard %q", name)
	}
	parsed, err := dashspec.LoadBytes(name+".cue", data)
	if err != nil {
		return nil, err
	}
	for _, d := range parsed {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s does not declare dashboard %q", file, name)
}

// Catalog returns every bundled handler.
func Catalog() dashspec.Catalog {
	return dashspec.Merge(
		avocadoHandlers(),
		spacexHandlers(),
		happinessHandlers(),
		electricityHandlers(),
		lifeexpHandlers(),
	)
}

// table fetches a dataset from the call's store.
func table(call graph.Call, name string) (*dataset.Dataset, error) {
	if call.Data == nil {
		return nil, fmt.Errorf("callback %s: no dataset store", call.Callback)
	}
	return call.Data.Get(name)
}

// bounds unpacks a two-element range slider value.
func bounds(v value.Value) (low, high value.Value, err error) {
	list, ok := value.AsList(v)
	if !ok || len(list) != 2 {
		return nil, nil, fmt.Errorf("range must be a two-element list, got %s", value.Format(v))
	}
	return list[0], list[1], nil
}

// displayName renders a dropdown value for a chart title.
func displayName(v value.Value) string {
	if s, ok := value.AsString(v); ok {
		return s
	}
	return value.Format(v)
}
