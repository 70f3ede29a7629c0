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
	"errors"
	"math"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	wantFlow := 0.22 * 0.22 * 100e-6 / 22
	if different(p.FlowSW(), wantFlow, 1e-12) || different(p.FlowRW(), wantFlow, 1e-12) {
		t.Errorf("flow rates = %g, %g; want %g", p.FlowSW(), p.FlowRW(), wantFlow)
	}
}

func TestFlowRateOverride(t *testing.T) {
	p := DefaultParams()
	p.FlowRateSW = 1e-6
	p.ResidenceTimeSW = 0
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.FlowSW() != 1e-6 {
		t.Errorf("FlowSW = %g; want 1e-6", p.FlowSW())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		field string
		f     func(p *Params)
	}{
		{"negative concentration", "ConcentrationRW0", func(p *Params) { p.ConcentrationRW0 = -1 }},
		{"zero width", "Width", func(p *Params) { p.Width = 0 }},
		{"zero length", "Length", func(p *Params) { p.Length = 0 }},
		{"NaN thickness", "Thickness", func(p *Params) { p.Thickness = math.NaN() }},
		{"zero residence time", "ResidenceTimeRW", func(p *Params) { p.ResidenceTimeRW = 0 }},
		{"negative flow rate", "FlowRateSW", func(p *Params) { p.FlowRateSW = -1 }},
		{"obstruction", "ObstructionFactor", func(p *Params) { p.ObstructionFactor = 0.5 }},
		{"cell pairs", "CellPairs", func(p *Params) { p.CellPairs = 0 }},
		{"intervals", "Intervals", func(p *Params) { p.Intervals = 2 }},
		{"permselectivity", "Membrane.Permselectivity", func(p *Params) { p.Membrane.Permselectivity = 1.2 }},
		{"membrane resistance", "Membrane.RAEM", func(p *Params) { p.Membrane.RAEM = 0 }},
		{"reversed gradient", "ConcentrationSW0", func(p *Params) { p.ConcentrationSW0, p.ConcentrationRW0 = 17.1, 512 }},
		{"negative load", "LoadVoltage", func(p *Params) { p.LoadVoltage = -0.01 }},
		{"load above open circuit voltage", "LoadVoltage", func(p *Params) { p.LoadVoltage = 0.2 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := DefaultParams()
			test.f(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("error %v is not ErrInvalidParameter", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %v is not a *ValidationError", err)
			}
			if ve.Field != test.field {
				t.Errorf("field = %s; want %s", ve.Field, test.field)
			}
		})
	}
}

func TestValidateBoundaries(t *testing.T) {
	t.Run("load at open circuit voltage", func(t *testing.T) {
		p := DefaultParams()
		p.LoadVoltage = OpenCircuitVoltage(p)
		if err := p.Validate(); err != nil {
			t.Error(err)
		}
	})
	t.Run("no salinity gradient", func(t *testing.T) {
		p := DefaultParams()
		p.ConcentrationSW0, p.ConcentrationRW0 = 100, 100
		p.LoadVoltage = 0
		if err := p.Validate(); err != nil {
			t.Error(err)
		}
	})
}
