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

import "testing"

func TestActivityCoefficient(t *testing.T) {
	tests := []struct {
		I, want float64
	}{
		{I: 0.512, want: 0.69124},
		{I: 0.0171, want: 0.88417},
		{I: 1e-8, want: 0.99988},
	}
	for _, test := range tests {
		if got := NaCl.ActivityCoefficient(test.I); different(got, test.want, 1e-4) {
			t.Errorf("γ(%g) = %g; want %g", test.I, got, test.want)
		}
	}
}

func TestActivity(t *testing.T) {
	// Activities are in the same units as concentrations.
	if got, want := NaCl.Activity(512), 512*NaCl.ActivityCoefficient(0.512); got != want {
		t.Errorf("activity = %g; want %g", got, want)
	}
}

func TestOsmoticCoefficient(t *testing.T) {
	if got := NaCl.OsmoticCoefficient(0); got != 1 {
		t.Errorf("φ(0) = %g; want 1", got)
	}
	// NaCl solutions have osmotic coefficients a little below 1 at
	// seawater strength.
	if got := NaCl.OsmoticCoefficient(0.5); got < 0.9 || got > 0.95 {
		t.Errorf("φ(0.5) = %g; want between 0.9 and 0.95", got)
	}
}
