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
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/diegopintossi/redmodel/ode"
	"github.com/sirupsen/logrus"
)

func TestSolveDefault(t *testing.T) {
	s := solveDefault(t, nil)
	n := len(s.X)
	if n != 100 || s.X[0] != 0 || s.X[n-1] != 0.22 {
		t.Fatalf("grid has %d points from %g to %g", n, s.X[0], s.X[n-1])
	}
	tests := []struct {
		name      string
		got, want float64
		tolerance float64
	}{
		{"outlet cSW", s.CSW[n-1], 445.824, 1e-4},
		{"outlet cRW", s.CRW[n-1], 83.2758, 1e-4},
		{"inlet emf", s.EMF[0], 0.145744, 1e-5},
		{"outlet emf", s.EMF[n-1], 0.0712306, 1e-4},
		{"power density", s.PowerDensityAvg, 1.01575, 1e-3},
		{"power", s.Power, 0.0983243, 1e-3},
		{"inlet exergy", s.ExergyIn, 0.292168, 1e-4},
		{"energy efficiency", s.EnergyEfficiency, 33.653, 1e-3},
		{"thermodynamic efficiency", s.ThermodynamicEfficiency, 63.310, 1e-2},
	}
	for _, test := range tests {
		if different(test.got, test.want, test.tolerance) {
			t.Errorf("%s = %g; want %g", test.name, test.got, test.want)
		}
	}
	if s.StackVoltage != 0.07 {
		t.Errorf("stack voltage = %g; want 0.07", s.StackVoltage)
	}
}

func TestSolveProfiles(t *testing.T) {
	s := solveDefault(t, nil)
	for i := 1; i < len(s.X); i++ {
		if s.CSW[i] > s.CSW[i-1] {
			t.Errorf("seawater concentration increases at x=%g", s.X[i])
		}
		if s.CRW[i] < s.CRW[i-1] {
			t.Errorf("river water concentration decreases at x=%g", s.X[i])
		}
		if s.CSW[i] < s.CRW[i] {
			t.Errorf("gradient reversed at x=%g", s.X[i])
		}
	}

	// Ideal membranes only transport salt with the current, so the salt
	// flow into the stack equals the salt flow out.
	p := s.Params
	n := len(s.X)
	in := p.FlowSW()*s.CSW[0] + p.FlowRW()*s.CRW[0]
	out := p.FlowSW()*s.CSW[n-1] + p.FlowRW()*s.CRW[n-1]
	if different(in, out, 1e-9) {
		t.Errorf("salt flow in = %g; out = %g", in, out)
	}
}

func TestSolveNonNegativePower(t *testing.T) {
	for _, name := range []string{IdealMembranes, FujifilmMembranes} {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			p.Membrane = DefaultMembranes()[name]
			ocv := OpenCircuitVoltage(p)
			maxLoad := 0.999 * ocv
			if name == FujifilmMembranes {
				// Salt leakage lowers the emf below high load voltages
				// near the outlet.
				maxLoad = ocv / 2
			}
			for _, u := range LoadRange(0, maxLoad, 6) {
				s := solveDefault(t, func(p *Params) {
					p.Membrane = DefaultMembranes()[name]
					p.LoadVoltage = u
				})
				for i, pd := range s.PowerDensity {
					if pd < -1e-12 {
						t.Errorf("U=%g: power density %g at x=%g", u, pd, s.X[i])
					}
				}
				if s.PowerDensityAvg < 0 || s.Power < 0 {
					t.Errorf("U=%g: average power density %g, power %g", u, s.PowerDensityAvg, s.Power)
				}
			}
		})
	}
}

func TestSolveNoGradient(t *testing.T) {
	s := solveDefault(t, func(p *Params) {
		p.ConcentrationSW0, p.ConcentrationRW0 = 100, 100
		p.LoadVoltage = 0
	})
	for i := range s.X {
		if s.CSW[i] != 100 || s.CRW[i] != 100 {
			t.Fatalf("concentrations changed to %g, %g at x=%g", s.CSW[i], s.CRW[i], s.X[i])
		}
		if math.Abs(s.EMF[i]) > 1e-12 {
			t.Errorf("emf = %g at x=%g", s.EMF[i], s.X[i])
		}
	}
	if s.Power != 0 || s.EnergyEfficiency != 0 || s.ThermodynamicEfficiency != 0 {
		t.Errorf("power %g, efficiencies %g %g; want 0", s.Power, s.EnergyEfficiency, s.ThermodynamicEfficiency)
	}
}

func TestSolveDeterministic(t *testing.T) {
	a := solveDefault(t, nil)
	b := solveDefault(t, nil)
	if a.Power != b.Power || a.ExergyOut != b.ExergyOut {
		t.Errorf("power %g != %g or exergy %g != %g", a.Power, b.Power, a.ExergyOut, b.ExergyOut)
	}
	for i := range a.CSW {
		if a.CSW[i] != b.CSW[i] || a.CRW[i] != b.CRW[i] {
			t.Fatalf("profiles differ at x=%g", a.X[i])
		}
	}
}

func TestSolveEuler(t *testing.T) {
	want := solveDefault(t, nil)
	o := ode.DefaultOptions()
	o.Method = ode.Euler
	got, err := Solve(context.Background(), DefaultParams(), o)
	if err != nil {
		t.Fatal(err)
	}
	if different(got.Power, want.Power, 1e-2) {
		t.Errorf("Euler power = %g; Dormand–Prince power = %g", got.Power, want.Power)
	}
}

func TestSolveStack(t *testing.T) {
	one := solveDefault(t, nil)
	five := solveDefault(t, func(p *Params) { p.CellPairs = 5 })
	if five.Power != one.Power {
		t.Errorf("power per cell pair changed with the number of cell pairs: %g != %g", five.Power, one.Power)
	}
	if five.StackPower != 5*one.Power {
		t.Errorf("stack power = %g; want %g", five.StackPower, 5*one.Power)
	}
	if different(five.StackVoltage, 0.35, 1e-12) {
		t.Errorf("stack voltage = %g; want 0.35", five.StackVoltage)
	}
}

func TestSolveEfficiencies(t *testing.T) {
	for _, name := range []string{IdealMembranes, FujifilmMembranes} {
		s := solveDefault(t, func(p *Params) { p.Membrane = DefaultMembranes()[name] })
		if !(s.EnergyEfficiency > 0 && s.EnergyEfficiency <= s.ThermodynamicEfficiency && s.ThermodynamicEfficiency < 100) {
			t.Errorf("%s: energy efficiency %g, thermodynamic efficiency %g", name, s.EnergyEfficiency, s.ThermodynamicEfficiency)
		}
		if s.ExergyOut >= s.ExergyIn {
			t.Errorf("%s: outlet exergy %g >= inlet exergy %g", name, s.ExergyOut, s.ExergyIn)
		}
	}
}

func TestSolveErrors(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		p := DefaultParams()
		p.Length = 0
		if _, err := Solve(context.Background(), p, ode.DefaultOptions()); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("error %v is not ErrInvalidParameter", err)
		}
	})
	t.Run("step budget", func(t *testing.T) {
		o := ode.DefaultOptions()
		o.MaxSteps = 10
		if _, err := Solve(context.Background(), DefaultParams(), o); !errors.Is(err, ErrNotConverged) {
			t.Errorf("error %v is not ErrNotConverged", err)
		}
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := Solve(ctx, DefaultParams(), ode.DefaultOptions()); !errors.Is(err, context.Canceled) {
			t.Errorf("error %v is not context.Canceled", err)
		}
	})
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.Out = &buf
	m := &Model{
		InitFuncs:    []StackManipulator{SetParams(DefaultParams())},
		RunFuncs:     []StackManipulator{Integrate(context.Background(), ode.DefaultOptions()), Postprocess()},
		CleanupFuncs: []StackManipulator{Log(l)},
	}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if err := m.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("energy efficiency")) {
		t.Errorf("log output %q", buf.String())
	}
}
