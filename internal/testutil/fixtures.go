package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/value"
)

// Small CSV extracts of the reference dashboard datasets. Numbers are
// chosen so group means are exact in binary floating point.
const (
	AvocadoCSV = `date,average_price,geography,type
2015-01-04,1.25,Albany,conventional
2015-01-04,1.75,Albany,organic
2015-01-04,1,New York,conventional
2015-01-04,1.5,New York,organic
2015-01-11,1.125,New York,conventional
2015-01-11,1.625,New York,organic
`

	SpaceXCSV = `Unnamed: 0,Flight Number,Launch Site,class,Payload Mass (kg),Booster Version,Booster Version Category
0,1,CCAFS LC-40,0,0,F9 v1.0  B0003,v1.0
1,2,CCAFS LC-40,0,525,F9 v1.0  B0004,v1.0
2,3,VAFB SLC-4E,0,500,F9 v1.1  B1003,v1.1
3,4,KSC LC-39A,1,2490,F9 FT B1031.1,FT
4,5,KSC LC-39A,1,5300,F9 FT B1032.1,FT
5,6,CCAFS LC-40,1,3600,F9 FT B1029.1,FT
6,7,KSC LC-39A,0,9600,F9 B4 B1039.2,B4
7,8,VAFB SLC-4E,1,9600,F9 B4 B1041.1,B4
`

	HappinessCSV = `country,region,happiness_score,happiness_rank,year
Canada,North America,7.25,7,2015
Canada,North America,7.75,5,2016
United States,North America,7,15,2015
United States,North America,6.5,14,2016
Norway,Western Europe,7.5,4,2015
Norway,Western Europe,7.625,1,2016
`

	ElectricityCSV = `Year,US_State,Residential Price,Commercial Price
2001,OH,8.5,7.5
2002,OH,9,7.75
2001,TX,9,7
2002,TX,9.5,7.25
2003,TX,10,8
2003,AK,12.5,11
`

	LifeExpectancyCSV = `country,year,life expectancy
France,1950,66.5
France,1960,70.25
Japan,1950,60
Japan,1960,67.75
Brazil,1950,48.5
Brazil,1960,54
`
)

// DashboardFiles maps dataset file names to fixture contents.
var DashboardFiles = map[string]string{
	"avocado.csv":         AvocadoCSV,
	"spacex.csv":          SpaceXCSV,
	"world_happiness.csv": HappinessCSV,
	"electricity.csv":     ElectricityCSV,
	"life_expectancy.csv": LifeExpectancyCSV,
}

// WriteDashboardFiles writes every fixture CSV into dir.
func WriteDashboardFiles(t testing.TB, dir string) {
	t.Helper()
	for name, content := range DashboardFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

// DashboardStore returns a sealed store holding every reference dataset
// under the names the bundled dashboards use.
func DashboardStore(t testing.TB) *dataset.Store {
	t.Helper()
	store := dataset.NewStore()
	err := store.LoadAll(context.Background(),
		dataset.Entry{Source: dataset.NewCSVSource("avocado", []byte(AvocadoCSV))},
		dataset.Entry{
			Source:  dataset.NewCSVSource("spacex", []byte(SpaceXCSV)),
			Options: []dataset.LoadOption{dataset.WithDroppedColumns("Unnamed: 0")},
		},
		dataset.Entry{Source: dataset.NewCSVSource("happiness", []byte(HappinessCSV))},
		dataset.Entry{Source: dataset.NewCSVSource("electricity", []byte(ElectricityCSV))},
		dataset.Entry{Source: dataset.NewCSVSource("life", []byte(LifeExpectancyCSV))},
	)
	require.NoError(t, err)
	store.Seal()
	return store
}

// PricesDataset is the three-row state/year/price table used throughout the
// query and render tests.
func PricesDataset(t testing.TB) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("prices", dataset.Schema{
		{Name: "state", Type: value.KindString},
		{Name: "year", Type: value.KindNumber},
		{Name: "price", Type: value.KindNumber},
	}, [][]value.Value{
		{value.String("A"), value.Number(2020), value.Number(10)},
		{value.String("A"), value.Number(2021), value.Number(12)},
		{value.String("B"), value.Number(2020), value.Number(8)},
	})
	require.NoError(t, err)
	return ds
}
