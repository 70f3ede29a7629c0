/*
Copyright © 2022 the redmodel authors.
This file is part of redmodel.

redmodel is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

redmodel is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with redmodel.  If not, see <http://www.gnu.org/licenses/>.
*/


package redutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/internal/history"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/plot"
)

// column is a named, labeled series of values.
type column struct {
	name, desc, units string
	profile           []float64
	scalar            float64
}

func (c column) header() string {
	if c.units == "" {
		return c.name
	}
	return fmt.Sprintf("%s [%s]", c.name, c.units)
}

// solutionColumns returns the profiles and scalar results of s, in the
// order of the fields of red.Solution, using the desc and units tags of
// the fields.
func solutionColumns(s *red.Solution) (profiles, scalars []column) {
	v := reflect.ValueOf(s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		desc, ok := f.Tag.Lookup("desc")
		if !ok {
			continue
		}
		c := column{name: strings.Split(f.Tag.Get("json"), ",")[0], desc: desc, units: f.Tag.Get("units")}
		switch x := v.Field(i).Interface().(type) {
		case []float64:
			c.profile = x
			profiles = append(profiles, c)
		case float64:
			c.scalar = x
			scalars = append(scalars, c)
		}
	}
	names := make([]string, 0, len(s.Outputs))
	for n := range s.Outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		profiles = append(profiles, column{name: n, desc: "User-defined output variable", profile: s.Outputs[n]})
	}
	return profiles, scalars
}

// paramColumns returns the simulation parameters.
func paramColumns(p red.Params) []column {
	return []column{
		{name: "residenceTimeSW", desc: "Seawater residence time", units: "s", scalar: p.ResidenceTimeSW},
		{name: "residenceTimeRW", desc: "River water residence time", units: "s", scalar: p.ResidenceTimeRW},
		{name: "flowSW", desc: "Seawater flow rate per compartment", units: "m³/s", scalar: p.FlowSW()},
		{name: "flowRW", desc: "River water flow rate per compartment", units: "m³/s", scalar: p.FlowRW()},
		{name: "width", desc: "Width of the flow path", units: "m", scalar: p.Width},
		{name: "length", desc: "Length of the flow path", units: "m", scalar: p.Length},
		{name: "thickness", desc: "Compartment thickness", units: "m", scalar: p.Thickness},
		{name: "loadVoltage", desc: "Load voltage per cell pair", units: "V", scalar: p.LoadVoltage},
		{name: "concentrationSW0", desc: "Inlet seawater concentration", units: "mol/m³", scalar: p.ConcentrationSW0},
		{name: "concentrationRW0", desc: "Inlet river water concentration", units: "mol/m³", scalar: p.ConcentrationRW0},
		{name: "temperature", desc: "Temperature", units: "K", scalar: p.Temperature},
		{name: "cellPairs", desc: "Number of cell pairs", scalar: float64(p.CellPairs)},
		{name: "obstructionFactor", desc: "Spacer obstruction factor", scalar: p.ObstructionFactor},
		{name: "openCircuitVoltage", desc: "Inlet open circuit voltage", units: "V", scalar: red.OpenCircuitVoltage(p)},
	}
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addScalarRows(sheet *xlsx.Sheet, cols []column) {
	for _, c := range cols {
		row := sheet.AddRow()
		row.AddCell().SetString(c.name)
		row.AddCell().SetFloat(c.scalar)
		row.AddCell().SetString(c.units)
		row.AddCell().SetString(c.desc)
	}
}

// WriteXLSX writes s to w as an Excel workbook with a "Profiles" sheet,
// holding the values at each point along the flow path, and a "Summary"
// sheet holding the membrane, the parameters and the results.
func WriteXLSX(w io.Writer, s *red.Solution) error {
	f := xlsx.NewFile()
	if err := addSolutionSheets(f, s); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("redutil: writing xlsx: %v", err)
	}
	return nil
}

func addSolutionSheets(f *xlsx.File, s *red.Solution) error {
	profiles, scalars := solutionColumns(s)
	sheet, err := f.AddSheet("Profiles")
	if err != nil {
		return fmt.Errorf("redutil: writing xlsx: %v", err)
	}
	header := make([]string, len(profiles))
	for i, c := range profiles {
		header[i] = c.header()
	}
	addStringRow(sheet, header...)
	for i := range s.X {
		row := sheet.AddRow()
		for _, c := range profiles {
			row.AddCell().SetFloat(c.profile[i])
		}
	}

	sheet, err = f.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("redutil: writing xlsx: %v", err)
	}
	addStringRow(sheet, "membrane", s.Params.Membrane.Name)
	addStringRow(sheet, "variable", "value", "units", "description")
	addScalarRows(sheet, paramColumns(s.Params))
	addScalarRows(sheet, scalars)
	return nil
}

// SweepRecord summarizes the solution at one load voltage of a sweep.
type SweepRecord struct {
	LoadVoltage             float64 `json:"loadVoltage" units:"V"`
	PowerDensityAvg         float64 `json:"powerDensityAvg" units:"W/m²"`
	Power                   float64 `json:"power" units:"W"`
	StackPower              float64 `json:"stackPower" units:"W"`
	Current                 float64 `json:"current" units:"A"`
	EMFAvg                  float64 `json:"emfAvg" units:"V"`
	EnergyEfficiency        float64 `json:"energyEfficiency" units:"%"`
	ThermodynamicEfficiency float64 `json:"thermodynamicEfficiency" units:"%"`
}

// NewSweepRecord summarizes pt.
func NewSweepRecord(pt red.SweepPoint) SweepRecord {
	s := pt.Solution
	return SweepRecord{
		LoadVoltage:             pt.LoadVoltage,
		PowerDensityAvg:         s.PowerDensityAvg,
		Power:                   s.Power,
		StackPower:              s.StackPower,
		Current:                 s.Current,
		EMFAvg:                  s.EMFAvg,
		EnergyEfficiency:        s.EnergyEfficiency,
		ThermodynamicEfficiency: s.ThermodynamicEfficiency,
	}
}

// SweepResult is the outcome of a load voltage sweep.
type SweepResult struct {
	Points []SweepRecord `json:"points"`

	// Best is the load voltage with the highest power density.
	Best float64 `json:"best"`

	// Solution is the solution at the best load voltage.
	Solution *red.Solution `json:"solution"`
}

// NewSweepResult summarizes the sweep points.
func NewSweepResult(points []red.SweepPoint) (*SweepResult, error) {
	best, err := red.MaxPower(points)
	if err != nil {
		return nil, err
	}
	r := &SweepResult{Best: best.LoadVoltage, Solution: best.Solution}
	for _, pt := range points {
		r.Points = append(r.Points, NewSweepRecord(pt))
	}
	return r, nil
}

// WriteSweepXLSX writes r to w as an Excel workbook with a "Sweep"
// sheet holding the results at each load voltage, and "Profiles" and
// "Summary" sheets for the load voltage with the highest power.
func WriteSweepXLSX(w io.Writer, r *SweepResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sweep")
	if err != nil {
		return fmt.Errorf("redutil: writing xlsx: %v", err)
	}
	t := reflect.TypeOf(SweepRecord{})
	header := make([]string, t.NumField())
	for i := range header {
		fl := t.Field(i)
		header[i] = fmt.Sprintf("%s [%s]", fl.Tag.Get("json"), fl.Tag.Get("units"))
	}
	addStringRow(sheet, header...)
	for _, pt := range r.Points {
		row := sheet.AddRow()
		v := reflect.ValueOf(pt)
		for i := 0; i < v.NumField(); i++ {
			row.AddCell().SetFloat(v.Field(i).Float())
		}
	}
	if err := addSolutionSheets(f, r.Solution); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("redutil: writing xlsx: %v", err)
	}
	return nil
}

// WriteJSON writes v to w in JSON format.
func WriteJSON(w io.Writer, v interface{}) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(v); err != nil {
		return fmt.Errorf("redutil: writing json: %v", err)
	}
	return nil
}

// createFile creates the file at path and writes to it with write.
func createFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("redutil: creating output file: %v", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeOutput returns a function that writes the model solution to
// path, in the format given by its extension.
func writeOutput(path string) red.StackManipulator {
	return func(m *red.Model) error {
		if m.Solution == nil {
			return fmt.Errorf("redutil: no solution to write")
		}
		return createFile(path, func(w io.Writer) error {
			if strings.ToLower(filepath.Ext(path)) == ".json" {
				return WriteJSON(w, m.Solution)
			}
			return WriteXLSX(w, m.Solution)
		})
	}
}

// writeSweep writes r to path, in the format given by its extension.
func writeSweep(path string, r *SweepResult) error {
	return createFile(path, func(w io.Writer) error {
		if strings.ToLower(filepath.Ext(path)) == ".json" {
			return WriteJSON(w, r)
		}
		return WriteSweepXLSX(w, r)
	})
}

// plotPath returns the location of the named plot in dir, which may be
// a blob storage location.
func plotPath(dir, name string) string {
	if IsBlob(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// writePlots saves the plots to the local paths returned by
// localPath for each plot file name.
func writePlots(plots map[string]func() (*plot.Plot, error), localPath func(name string) string) error {
	names := make([]string, 0, len(plots))
	for name := range plots {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := plots[name]()
		if err != nil {
			return err
		}
		file := localPath(name)
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return fmt.Errorf("redutil: creating plot directory: %v", err)
		}
		if err := createFile(file, func(w io.Writer) error { return red.WritePNG(w, p) }); err != nil {
			return err
		}
	}
	return nil
}

// solutionPlots returns the plots of a solution, by file name.
func solutionPlots(s *red.Solution) map[string]func() (*plot.Plot, error) {
	return map[string]func() (*plot.Plot, error){
		"concentration.png": func() (*plot.Plot, error) { return red.ConcentrationPlot(s) },
		"emf.png":           func() (*plot.Plot, error) { return red.EMFPlot(s) },
	}
}

// writeHistory writes the records to w as a table.
func writeHistory(w io.Writer, records []history.Record) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTime\tKind\tMembrane\tU [V]\tPd [W/m²]\tP [W]\tη_E [%]\tη_th [%]\tOutput")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4g\t%.4g\t%.4g\t%.3g\t%.3g\t%s\n",
			r.ID, r.Time.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Membrane, r.LoadVoltage,
			r.PowerDensityAvg, r.Power, r.EnergyEfficiency, r.ThermodynamicEfficiency, r.Output)
	}
	return tw.Flush()
}
