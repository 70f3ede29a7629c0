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

import "math"

// Constants for the mixing exergy of NaCl solutions.
const (
	mwNaCl             = 58.44e-3 // [kg mol⁻¹]
	mwWater            = 18.01e-3 // [kg mol⁻¹]
	entropyGasConstant = 8.314    // [J mol⁻¹ K⁻¹]
)

// speciesRates holds the molar flow rates [mol s⁻¹] of the species in a
// NaCl solution.
type speciesRates struct {
	na, cl, water, total float64
}

// density returns the density [kg m⁻³] of a NaCl solution with
// concentration c [mol m⁻³], interpolated from CRC handbook values.
func density(c float64) float64 {
	return (0.0375*(c/1000) + 0.9987) * 1000
}

func molarRates(c, flow float64) speciesRates {
	n := speciesRates{
		na:    c * flow,
		cl:    c * flow,
		water: flow * (density(c) - c*mwNaCl) / mwWater,
	}
	n.total = n.na + n.cl + n.water
	return n
}

// EntropyRate returns the entropy rate [W K⁻¹] of a stream of salt
// solution with concentration c [mol m⁻³] and flow rate flow [m³ s⁻¹].
func EntropyRate(s Salt, c, flow float64) float64 {
	n := molarRates(c, flow)
	xNa, xCl, xW := n.na/n.total, n.cl/n.total, n.water/n.total
	gamma := s.ActivityCoefficient(c / 1000)
	return -entropyGasConstant * n.total *
		(xNa*math.Log(gamma*xNa) + xCl*math.Log(gamma*xCl) + xW*math.Log(xW))
}

// MixingExergy returns the Gibbs free energy rate [W] released by mixing a
// seawater stream (cSW, fSW) with a river water stream (cRW, fRW) at
// temperature T [K].
func MixingExergy(s Salt, T, cSW, cRW, fSW, fRW float64) float64 {
	fMix := fSW + fRW
	cMix := (fSW*cSW + fRW*cRW) / fMix
	return T * (EntropyRate(s, cMix, fMix) - EntropyRate(s, cSW, fSW) - EntropyRate(s, cRW, fRW))
}
