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
	"fmt"
	"math"
)

// Params holds the inputs of a simulation of one cell pair in co-flow.
// Units are SI except for concentrations, which are in mol m⁻³ (mM).
type Params struct {
	ResidenceTimeSW float64 // [s]
	ResidenceTimeRW float64 // [s]

	// FlowRateSW and FlowRateRW [m³ s⁻¹], when >0, override the flow
	// rates derived from the residence times.
	FlowRateSW float64
	FlowRateRW float64

	Width     float64 // width of the flow path [m]
	Length    float64 // length of the flow path [m]
	Thickness float64 // thickness of the water compartments [m]

	Membrane Membrane

	// LoadVoltage is the external load voltage per cell pair [V].
	LoadVoltage float64

	ConcentrationSW0 float64 // inlet NaCl concentration of seawater [mol m⁻³]
	ConcentrationRW0 float64 // inlet NaCl concentration of river water [mol m⁻³]

	Temperature       float64 // [K]
	CellPairs         int     // number of cell pairs in the stack
	ObstructionFactor float64 // spacer shadow effect on the channel resistance [-]

	// Intervals is the number of points at which the solution is
	// reported along the flow path, including both ends.
	Intervals int

	Salt Salt
}

// DefaultParams returns the parameters of a laboratory scale stack with
// ideal membranes fed with seawater and river water.
func DefaultParams() Params {
	return Params{
		ResidenceTimeSW:   22,
		ResidenceTimeRW:   22,
		Width:             0.22,
		Length:            0.22,
		Thickness:         100e-6,
		Membrane:          DefaultMembranes()[IdealMembranes],
		LoadVoltage:       0.07,
		ConcentrationSW0:  512,
		ConcentrationRW0:  17.1,
		Temperature:       298,
		CellPairs:         1,
		ObstructionFactor: 1.65,
		Intervals:         100,
		Salt:              NaCl,
	}
}

// FlowSW returns the seawater flow rate per compartment [m³ s⁻¹].
func (p *Params) FlowSW() float64 {
	if p.FlowRateSW > 0 {
		return p.FlowRateSW
	}
	return p.Length * p.Width * p.Thickness / p.ResidenceTimeSW
}

// FlowRW returns the river water flow rate per compartment [m³ s⁻¹].
func (p *Params) FlowRW() float64 {
	if p.FlowRateRW > 0 {
		return p.FlowRateRW
	}
	return p.Length * p.Width * p.Thickness / p.ResidenceTimeRW
}

// Area returns the active area of a single membrane [m²].
func (p *Params) Area() float64 { return p.Width * p.Length }

func invalid(field string, v interface{}, reason string) error {
	return &ValidationError{Field: field, Value: v, Reason: reason}
}

func bad(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// Validate checks that the parameters describe a physically valid
// stack. The returned error, if any, is a *ValidationError.
func (p *Params) Validate() error {
	positive := []struct {
		field string
		v     float64
	}{
		{"Width", p.Width},
		{"Length", p.Length},
		{"Thickness", p.Thickness},
		{"ConcentrationSW0", p.ConcentrationSW0},
		{"ConcentrationRW0", p.ConcentrationRW0},
		{"Temperature", p.Temperature},
	}
	for _, c := range positive {
		if bad(c.v) || !(c.v > 0) {
			return invalid(c.field, c.v, "should be >0")
		}
	}
	if p.Area() <= 0 || bad(p.Area()) {
		return invalid("Area", p.Area(), "membrane area should be >0")
	}

	flows := []struct {
		field         string
		residenceTime float64
		flow          float64
	}{
		{"ResidenceTimeSW", p.ResidenceTimeSW, p.FlowRateSW},
		{"ResidenceTimeRW", p.ResidenceTimeRW, p.FlowRateRW},
	}
	for _, f := range flows {
		if bad(f.flow) || f.flow < 0 {
			return invalid("FlowRate"+f.field[len("ResidenceTime"):], f.flow, "should be >=0")
		}
		if f.flow == 0 && (bad(f.residenceTime) || !(f.residenceTime > 0)) {
			return invalid(f.field, f.residenceTime, "should be >0 (or specify the flow rate)")
		}
	}
	if f := p.FlowSW(); bad(f) || !(f > 0) {
		return invalid("FlowSW", f, "flow rate should be >0")
	}
	if f := p.FlowRW(); bad(f) || !(f > 0) {
		return invalid("FlowRW", f, "flow rate should be >0")
	}

	if bad(p.ObstructionFactor) || p.ObstructionFactor < 1 {
		return invalid("ObstructionFactor", p.ObstructionFactor, "should be >=1")
	}
	if p.CellPairs < 1 {
		return invalid("CellPairs", p.CellPairs, "should be >=1")
	}
	if p.Intervals < 3 {
		return invalid("Intervals", p.Intervals, "should be >=3")
	}
	if err := p.Membrane.Validate(); err != nil {
		return err
	}
	if s := p.Salt; s.B <= 0 || s.NuPlus+s.NuMinus <= 0 || bad(s.S) || bad(s.N) {
		return invalid("Salt", fmt.Sprintf("%+v", s), "invalid TCPC parameters")
	}
	if p.ConcentrationSW0 < p.ConcentrationRW0 {
		return invalid("ConcentrationSW0", p.ConcentrationSW0,
			fmt.Sprintf("should be >= ConcentrationRW0 (%g)", p.ConcentrationRW0))
	}

	if bad(p.LoadVoltage) || p.LoadVoltage < 0 {
		return invalid("LoadVoltage", p.LoadVoltage, "should be >=0")
	}
	if ocv := OpenCircuitVoltage(*p); p.LoadVoltage > ocv {
		return invalid("LoadVoltage", p.LoadVoltage,
			fmt.Sprintf("should not exceed the open circuit voltage at the inlet (%.4g V)", ocv))
	}
	return nil
}
