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
	"gonum.org/v1/gonum/integrate"
)

// PowerDensityProfile returns the gross power density [W m⁻²] at each
// point, given the electromotive force emf [V], the cell pair
// resistance [Ω m²] and the load voltage u [V].
func PowerDensityProfile(emf, resistance []float64, u float64) []float64 {
	pd := make([]float64, len(emf))
	for i := range emf {
		pd[i] = (emf[i]*u - u*u) / resistance[i]
	}
	return pd
}

// AveragePowerDensity returns the gross power density [W m⁻²] averaged
// over the total membrane area of a cell pair (two membranes), using
// Simpson's rule along the flow path x.
func AveragePowerDensity(x, pd []float64, length float64) float64 {
	return integrate.Simpsons(x, pd) / (2 * length)
}

// Current returns the current [A] produced by a cell pair with current
// density profile j [A m⁻²] along x.
func Current(x, j []float64, width float64) float64 {
	return width * integrate.Simpsons(x, j)
}

// AverageEMF returns the electromotive force [V] averaged along x.
func AverageEMF(x, emf []float64, length float64) float64 {
	return integrate.Simpsons(x, emf) / length
}

// Efficiencies returns the energy efficiency, i.e. the power as a
// percentage of the mixing exergy available at the inlet, and the
// thermodynamic efficiency, i.e. the power as a percentage of the exergy
// consumed between inlet and outlet. Efficiencies are zero when the
// corresponding exergy is not positive.
func Efficiencies(power, exergyIn, exergyOut float64) (energy, thermodynamic float64) {
	if exergyIn > 0 {
		energy = 100 * power / exergyIn
	}
	if used := exergyIn - exergyOut; used > 0 {
		thermodynamic = 100 * power / used
	}
	return
}
