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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/internal/history"
)

// execute runs the command specified by args with the example
// configuration file and returns its output.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	Cfg.Set("config", "testdata/configExample.toml")
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	if want := "redmodel v" + red.Version; !strings.Contains(out, want) {
		t.Errorf("output %q does not contain %q", out, want)
	}
}

func TestRunSteady(t *testing.T) {
	dir := t.TempDir()
	Cfg.Set("OutputFile", filepath.Join(dir, "out.xlsx"))
	Cfg.Set("LogFile", "")
	Cfg.Set("PlotDir", filepath.Join(dir, "plots"))
	Cfg.Set("HistoryDB", filepath.Join(dir, "history.db"))
	defer Cfg.Set("PlotDir", "")
	defer Cfg.Set("HistoryDB", "")

	out := execute(t, "run", "steady")
	if !strings.Contains(out, "Simulation finished") {
		t.Errorf("unexpected output:\n%s", out)
	}
	for _, f := range []string{"out.xlsx", "out.log", "plots/concentration.png", "plots/emf.png"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Error(err)
		}
	}
	log, err := os.ReadFile(filepath.Join(dir, "out.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(log), "membrane=Custom") {
		t.Errorf("log file does not name the membrane:\n%s", log)
	}

	db, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	records, err := db.List(context.Background(), 0)
	db.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d history records; want 1", len(records))
	}
	if r := records[0]; r.Kind != "steady" || r.Membrane != "Custom" || r.LoadVoltage != 0.05 || r.Power <= 0 {
		t.Errorf("history record %+v", r)
	}

	out = execute(t, "history")
	if !strings.Contains(out, records[0].ID) {
		t.Errorf("history output does not contain run %s:\n%s", records[0].ID, out)
	}
}

func TestRunSteadyBlob(t *testing.T) {
	dir := t.TempDir()
	Cfg.Set("OutputFile", "file://"+dir+"/out.json")
	Cfg.Set("LogFile", "")
	execute(t, "run", "steady")

	b, err := os.ReadFile(filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatal(err)
	}
	var s red.Solution
	if err := json.Unmarshal(b, &s); err != nil {
		t.Fatal(err)
	}
	if len(s.X) != 50 {
		t.Errorf("got %d points; want 50", len(s.X))
	}
	if len(s.Outputs) != 2 {
		t.Errorf("got %d output variables; want 2", len(s.Outputs))
	}
	if _, err := os.Stat(filepath.Join(dir, "out.log")); err != nil {
		t.Error(err)
	}
}

func TestSweepCmd(t *testing.T) {
	dir := t.TempDir()
	Cfg.Set("OutputFile", filepath.Join(dir, "sweep.json"))
	Cfg.Set("LogFile", "")
	out := execute(t, "sweep")
	if !strings.Contains(out, "Maximum power density") {
		t.Errorf("unexpected output:\n%s", out)
	}

	f, err := os.Open(filepath.Join(dir, "sweep.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var r SweepResult
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if len(r.Points) != 11 {
		t.Errorf("got %d points; want 11", len(r.Points))
	}
	best := r.Points[0]
	for _, pt := range r.Points {
		if pt.PowerDensityAvg > best.PowerDensityAvg {
			best = pt
		}
	}
	if best.LoadVoltage != r.Best {
		t.Errorf("best load %g; want %g", r.Best, best.LoadVoltage)
	}
}

func TestMembranesCmd(t *testing.T) {
	out := execute(t, "membranes")
	for _, name := range []string{"Custom", "Leaky", red.IdealMembranes, red.FujifilmMembranes} {
		if !strings.Contains(out, name) {
			t.Errorf("%q missing from output:\n%s", name, out)
		}
	}
}
