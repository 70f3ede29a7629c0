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
	"fmt"
	"math"

	"github.com/diegopintossi/redmodel/ode"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Solution holds the profiles along the flow path and the performance of
// a cell pair. Solutions may be shared between callers and should be
// treated as read-only.
type Solution struct {
	X              []float64 `json:"x" desc:"Position along the flow path" units:"m"`
	CSW            []float64 `json:"cSW" desc:"NaCl concentration in seawater" units:"mol/m³"`
	CRW            []float64 `json:"cRW" desc:"NaCl concentration in river water" units:"mol/m³"`
	EMF            []float64 `json:"emf" desc:"Electromotive force" units:"V"`
	Resistance     []float64 `json:"resistance" desc:"Cell pair area resistance" units:"Ω m²"`
	CurrentDensity []float64 `json:"currentDensity" desc:"Current density" units:"A/m²"`
	PowerDensity   []float64 `json:"powerDensity" desc:"Gross power density" units:"W/m²"`

	Power                   float64 `json:"power" desc:"Gross power per cell pair" units:"W"`
	StackPower              float64 `json:"stackPower" desc:"Gross power of the stack" units:"W"`
	PowerDensityAvg         float64 `json:"powerDensityAvg" desc:"Average gross power density" units:"W/m²"`
	Current                 float64 `json:"current" desc:"Current" units:"A"`
	StackVoltage            float64 `json:"stackVoltage" desc:"Stack load voltage" units:"V"`
	EMFAvg                  float64 `json:"emfAvg" desc:"Average electromotive force" units:"V"`
	ExergyIn                float64 `json:"exergyIn" desc:"Mixing exergy rate at the inlet" units:"W"`
	ExergyOut               float64 `json:"exergyOut" desc:"Mixing exergy rate at the outlet" units:"W"`
	EnergyEfficiency        float64 `json:"energyEfficiency" desc:"Energy efficiency" units:"%"`
	ThermodynamicEfficiency float64 `json:"thermodynamicEfficiency" desc:"Thermodynamic efficiency" units:"%"`

	// Outputs holds user-defined output variables.
	Outputs map[string][]float64 `json:"outputs,omitempty"`

	Params Params `json:"-"`
}

// SetParams validates p and sets up the model evaluator and the grid
// along the flow path.
func SetParams(p Params) StackManipulator {
	return func(m *Model) error {
		e, err := NewEvaluator(p)
		if err != nil {
			return err
		}
		m.Params = p
		m.eval = e
		m.grid = floats.Span(make([]float64, p.Intervals), 0, p.Length)
		m.states = nil
		m.Solution = nil
		return nil
	}
}

// Integrate returns a function that integrates the model equations from
// the inlet to the outlet.
func Integrate(ctx context.Context, o ode.Options) StackManipulator {
	return func(m *Model) error {
		if err := m.requireParams("Integrate"); err != nil {
			return err
		}
		q0 := []float64{m.Params.ConcentrationSW0, m.Params.ConcentrationRW0}
		states, err := ode.Solve(ctx, m.eval.Derivatives, q0, m.grid, o)
		if err != nil {
			return fmt.Errorf("red: integrating model equations: %w", err)
		}
		m.states = states
		return nil
	}
}

// Postprocess returns a function that calculates the profiles and the
// performance of the stack from the integrated concentrations.
func Postprocess() StackManipulator {
	return func(m *Model) error {
		if err := m.requireParams("Postprocess"); err != nil {
			return err
		}
		if m.states == nil {
			return fmt.Errorf("red: Postprocess called before Integrate")
		}
		p := m.Params
		n := len(m.grid)
		s := &Solution{
			X:              append([]float64(nil), m.grid...),
			CSW:            make([]float64, n),
			CRW:            make([]float64, n),
			EMF:            make([]float64, n),
			Resistance:     make([]float64, n),
			CurrentDensity: make([]float64, n),
			Params:         p,
		}
		for i, q := range m.states {
			s.CSW[i], s.CRW[i] = q[0], q[1]
			s.EMF[i], s.Resistance[i], s.CurrentDensity[i] = m.eval.CellState(q[0], q[1])
		}
		s.PowerDensity = PowerDensityProfile(s.EMF, s.Resistance, p.LoadVoltage)

		s.PowerDensityAvg = AveragePowerDensity(s.X, s.PowerDensity, p.Length)
		s.Power = s.PowerDensityAvg * 2 * p.Area()
		s.StackPower = s.Power * float64(p.CellPairs)
		s.StackVoltage = p.LoadVoltage * float64(p.CellPairs)
		s.Current = Current(s.X, s.CurrentDensity, p.Width)
		s.EMFAvg = AverageEMF(s.X, s.EMF, p.Length)

		fSW, fRW := p.FlowSW(), p.FlowRW()
		s.ExergyIn = MixingExergy(p.Salt, p.Temperature, s.CSW[0], s.CRW[0], fSW, fRW)
		s.ExergyOut = MixingExergy(p.Salt, p.Temperature, s.CSW[n-1], s.CRW[n-1], fSW, fRW)
		s.EnergyEfficiency, s.ThermodynamicEfficiency = Efficiencies(s.Power, s.ExergyIn, s.ExergyOut)

		if err := s.checkFinite(); err != nil {
			return err
		}
		m.Solution = s
		return nil
	}
}

// checkFinite returns an error wrapping ErrNotConverged if any value in
// the solution is NaN or infinite.
func (s *Solution) checkFinite() error {
	profiles := []struct {
		name string
		v    []float64
	}{
		{"cSW", s.CSW}, {"cRW", s.CRW}, {"emf", s.EMF}, {"resistance", s.Resistance},
		{"current density", s.CurrentDensity}, {"power density", s.PowerDensity},
	}
	for _, p := range profiles {
		for i, v := range p.v {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("red: %w: %s is %g at x=%g", ErrNotConverged, p.name, v, s.X[i])
			}
		}
	}
	scalars := map[string]float64{
		"power": s.Power, "current": s.Current, "average emf": s.EMFAvg,
		"inlet exergy": s.ExergyIn, "outlet exergy": s.ExergyOut,
	}
	for name, v := range scalars {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("red: %w: %s is %g", ErrNotConverged, name, v)
		}
	}
	return nil
}

// Log returns a function that logs a summary of the solution.
func Log(l logrus.FieldLogger) StackManipulator {
	return func(m *Model) error {
		s := m.Solution
		if s == nil {
			return fmt.Errorf("red: Log called before Postprocess")
		}
		l.WithFields(logrus.Fields{
			"membrane": m.Params.Membrane.Name,
			"load":     m.Params.LoadVoltage,
		}).Infof("power %.4g W, power density %.4g W/m², energy efficiency %.3g %%, thermodynamic efficiency %.3g %%",
			s.Power, s.PowerDensityAvg, s.EnergyEfficiency, s.ThermodynamicEfficiency)
		l.Debugf("outlet concentrations: SW %.4g mM, RW %.4g mM; average emf %.4g V; current %.4g A",
			s.CSW[len(s.CSW)-1], s.CRW[len(s.CRW)-1], s.EMFAvg, s.Current)
		return nil
	}
}

// Solve runs a simulation with the given parameters and integrator
// options and returns the solution.
func Solve(ctx context.Context, p Params, o ode.Options) (*Solution, error) {
	m := &Model{
		InitFuncs: []StackManipulator{SetParams(p)},
		RunFuncs:  []StackManipulator{Integrate(ctx, o), Postprocess()},
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	if err := m.Run(); err != nil {
		return nil, err
	}
	return m.Solution, nil
}
