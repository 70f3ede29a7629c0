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


package red

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/Knetic/govaluate"
	"github.com/diegopintossi/redmodel/ode"
)

func TestOutputter(t *testing.T) {
	o, err := NewOutputter(map[string]string{
		"Load":     "E - J*R",
		"GrossPd":  "Pd",
		"Gradient": "cSW/cRW",
		"Loss":     "J*J*R",
		"Double":   "twice(x)",
		" Clipped": "max(Pd, 0.5)",
	}, map[string]govaluate.ExpressionFunction{
		"twice": func(args ...interface{}) (interface{}, error) {
			return 2 * args[0].(float64), nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Clipped", "Double", "Gradient", "GrossPd", "Load", "Loss"}
	if !reflect.DeepEqual(o.Names(), want) {
		t.Errorf("names = %v; want %v", o.Names(), want)
	}

	m := &Model{
		InitFuncs: []StackManipulator{SetParams(DefaultParams()), o.CheckOutputVars()},
		RunFuncs:  []StackManipulator{Integrate(context.Background(), ode.DefaultOptions()), Postprocess(), o.Output()},
	}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	s := m.Solution
	for i := range s.X {
		if math.Abs(s.Outputs["Load"][i]-0.07) > 1e-12 {
			t.Errorf("Load = %g at x=%g; want 0.07", s.Outputs["Load"][i], s.X[i])
		}
		if s.Outputs["GrossPd"][i] != s.PowerDensity[i] {
			t.Errorf("GrossPd = %g; want %g", s.Outputs["GrossPd"][i], s.PowerDensity[i])
		}
		if s.Outputs["Double"][i] != 2*s.X[i] {
			t.Errorf("Double = %g; want %g", s.Outputs["Double"][i], 2*s.X[i])
		}
		if s.Outputs["Clipped"][i] < 0.5 {
			t.Errorf("Clipped = %g", s.Outputs["Clipped"][i])
		}
	}
	if g := s.Outputs["Gradient"]; g[0] <= g[len(g)-1] {
		t.Errorf("concentration ratio should decrease: %g, %g", g[0], g[len(g)-1])
	}
}

func TestOutputterErrors(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		if _, err := NewOutputter(map[string]string{"a": "E +"}, nil); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("empty name", func(t *testing.T) {
		if _, err := NewOutputter(map[string]string{" ": "E"}, nil); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("unknown variable", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{"a": "E * Voltage"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := o.CheckOutputVars()(&Model{}); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("before postprocess", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{"a": "E"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := o.Output()(&Model{}); err == nil {
			t.Error("expected an error")
		}
	})
}
