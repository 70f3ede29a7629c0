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
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestSimpsonMetrics(t *testing.T) {
	// Simpson's rule is exact for cubic polynomials.
	const length = 0.22
	x := floats.Span(make([]float64, 51), 0, length)
	cubic := make([]float64, len(x))
	for i, xi := range x {
		cubic[i] = 1 + 2*xi - 3*xi*xi + 4*xi*xi*xi
	}
	integral := length + length*length - length*length*length + length*length*length*length

	if got := AverageEMF(x, cubic, length); different(got, integral/length, 1e-12) {
		t.Errorf("AverageEMF = %g; want %g", got, integral/length)
	}
	if got := AveragePowerDensity(x, cubic, length); different(got, integral/(2*length), 1e-12) {
		t.Errorf("AveragePowerDensity = %g; want %g", got, integral/(2*length))
	}
	if got := Current(x, cubic, 0.5); different(got, 0.5*integral, 1e-12) {
		t.Errorf("Current = %g; want %g", got, 0.5*integral)
	}
}

func TestPowerDensityProfile(t *testing.T) {
	pd := PowerDensityProfile([]float64{0.1, 0.1, 0.08}, []float64{1e-3, 2e-3, 1e-3}, 0.05)
	want := []float64{2.5, 1.25, 1.5}
	for i := range want {
		if different(pd[i], want[i], 1e-12) {
			t.Errorf("pd[%d] = %g; want %g", i, pd[i], want[i])
		}
	}
	// No power at open circuit.
	if pd := PowerDensityProfile([]float64{0.1}, []float64{1e-3}, 0.1); pd[0] != 0 {
		t.Errorf("open circuit power density = %g", pd[0])
	}
}
