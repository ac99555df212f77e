package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
)

// CarsHeaders is the header row produced by the cars generator. The leading
// index column mimics a table exported with its row index.
var CarsHeaders = []string{"Unnamed: 0", "mpg", "hp", "wt", "cyl", "origin", "am"}

// CarsGeneratorConfig configures the synthetic cars table
type CarsGeneratorConfig struct {
	Rows        int     `json:"rows"`
	Seed        int64   `json:"seed"`
	MissingRate float64 `json:"missing_rate"` // share of blank hp cells
}

// DefaultCarsConfig returns defaults large enough for every column to profile as intended
func DefaultCarsConfig() CarsGeneratorConfig {
	return CarsGeneratorConfig{
		Rows: 60,
		Seed: 42,
	}
}

// CarsDataGenerator generates a small motor-trend style table with continuous,
// binary and factor columns
type CarsDataGenerator struct {
	config CarsGeneratorConfig
	rng    *rand.Rand
}

// NewCarsDataGenerator creates a new cars data generator
func NewCarsDataGenerator(config CarsGeneratorConfig) *CarsDataGenerator {
	if config.Rows <= 0 {
		config.Rows = DefaultCarsConfig().Rows
	}
	return &CarsDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var (
	carCylinders = []int{4, 6, 8}
	carOrigins   = []string{"USA", "Europe", "Japan"}
)

// Generate returns the header row and data rows. The first rows cycle through
// every cylinder count, origin and transmission so small tables still see
// every level.
func (g *CarsDataGenerator) Generate() (headers []string, rows [][]string) {
	rows = make([][]string, 0, g.config.Rows)
	for i := 0; i < g.config.Rows; i++ {
		cyl := carCylinders[i%len(carCylinders)]
		origin := carOrigins[(i/len(carCylinders))%len(carOrigins)]
		am := i % 2
		if i >= len(carCylinders)*len(carOrigins) {
			cyl = carCylinders[g.rng.Intn(len(carCylinders))]
			origin = carOrigins[g.rng.Intn(len(carOrigins))]
			am = g.rng.Intn(2)
		}

		hp := 50 + float64(cyl)*18 + g.rng.NormFloat64()*12
		wt := 1.5 + float64(cyl)*0.3 + g.rng.NormFloat64()*0.25
		mpg := 45 - hp*0.08 - wt*3 + float64(am)*2.5 + g.rng.NormFloat64()*1.5

		hpCell := formatOne(hp)
		if g.config.MissingRate > 0 && g.rng.Float64() < g.config.MissingRate {
			hpCell = ""
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatOne(mpg),
			hpCell,
			strconv.FormatFloat(round(wt, 3), 'f', 3, 64),
			strconv.Itoa(cyl),
			origin,
			strconv.Itoa(am),
		})
	}
	return append([]string(nil), CarsHeaders...), rows
}

// WriteCSV writes the generated table as CSV
func (g *CarsDataGenerator) WriteCSV(w io.Writer) error {
	headers, rows := g.Generate()
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func formatOne(v float64) string {
	return strconv.FormatFloat(round(v, 1), 'f', 1, 64)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
