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
	"errors"
	"reflect"
	"testing"

	"github.com/diegopintossi/redmodel/ode"
)

func TestLoadRange(t *testing.T) {
	tests := []struct {
		min, max float64
		n        int
		want     []float64
	}{
		{0, 0.1, 5, []float64{0, 0.025, 0.05, 0.075, 0.1}},
		{0.05, 0.1, 1, []float64{0.05}},
		{0, 0.1, 2, []float64{0, 0.1}},
	}
	for _, test := range tests {
		got := LoadRange(test.min, test.max, test.n)
		if len(got) != len(test.want) {
			t.Fatalf("LoadRange(%g, %g, %d) = %v; want %v", test.min, test.max, test.n, got, test.want)
		}
		for i := range got {
			if different(got[i], test.want[i], 1e-12) && got[i] != test.want[i] {
				t.Errorf("LoadRange(%g, %g, %d) = %v; want %v", test.min, test.max, test.n, got, test.want)
				break
			}
		}
	}
}

func TestSweep(t *testing.T) {
	p := DefaultParams()
	ocv := OpenCircuitVoltage(p)
	loads := LoadRange(0, 0.95*ocv, 20)
	points, err := Sweep(context.Background(), p, loads, ode.DefaultOptions(), 4)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]float64, len(points))
	for i, pt := range points {
		got[i] = pt.LoadVoltage
		if pt.Solution.Params.LoadVoltage != pt.LoadVoltage {
			t.Errorf("point %d solved at %g V; want %g V", i, pt.Solution.Params.LoadVoltage, pt.LoadVoltage)
		}
	}
	if !reflect.DeepEqual(got, loads) {
		t.Errorf("loads = %v; want %v", got, loads)
	}
	if points[0].Solution.Power != 0 {
		t.Errorf("power at zero load = %g", points[0].Solution.Power)
	}

	best, err := MaxPower(points)
	if err != nil {
		t.Fatal(err)
	}
	if r := best.LoadVoltage / ocv; r < 0.2 || r > 0.6 {
		t.Errorf("maximum power at %g V (%.2g of the open circuit voltage)", best.LoadVoltage, r)
	}
	if different(best.Solution.PowerDensityAvg, 1.12, 0.05) {
		t.Errorf("maximum power density = %g; want about 1.12", best.Solution.PowerDensityAvg)
	}

	// The power curve rises to the maximum and falls after it.
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Solution.PowerDensityAvg, points[i].Solution.PowerDensityAvg
		if points[i].LoadVoltage <= best.LoadVoltage && cur < prev {
			t.Errorf("power density decreases before the maximum at %g V", points[i].LoadVoltage)
		}
		if points[i-1].LoadVoltage >= best.LoadVoltage && cur > prev {
			t.Errorf("power density increases after the maximum at %g V", points[i].LoadVoltage)
		}
	}
}

func TestSweepErrors(t *testing.T) {
	p := DefaultParams()
	if _, err := Sweep(context.Background(), p, nil, ode.DefaultOptions(), 1); err == nil {
		t.Error("empty sweep: expected an error")
	}
	_, err := Sweep(context.Background(), p, []float64{0.05, 0.5}, ode.DefaultOptions(), 0)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("error %v is not ErrInvalidParameter", err)
	}
	if _, err := MaxPower(nil); err == nil {
		t.Error("MaxPower: expected an error")
	}
}
