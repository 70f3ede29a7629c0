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

// Parameters of the TCPC correlation, valid at 298.15 K.
const (
	tcpcAphi        = 0.392
	tcpcTemperature = 298.15 // [K]
)

// Salt holds the TCPC parameters of an electrolyte (Ge et al., 2007):
// the ion charges, the stoichiometric numbers and the fitted parameters
// b, S and n.
type Salt struct {
	ZPlus, ZMinus   float64
	NuPlus, NuMinus float64
	B, S, N         float64
}

// NaCl is sodium chloride.
var NaCl = Salt{ZPlus: 1, ZMinus: 1, NuPlus: 1, NuMinus: 1, B: 3.0210, S: 36.1573, N: 0.8998}

// ActivityCoefficient returns the mean ionic activity coefficient [-] at
// ionic strength I [mol L⁻¹].
func (s Salt) ActivityCoefficient(I float64) float64 {
	sq := math.Sqrt(I)
	fGamma := -tcpcAphi * (sq/(1+s.B*sq) + (2/s.B)*math.Log(1+s.B*sq))
	gammaSV := (s.S / tcpcTemperature) * math.Pow(I, 2*s.N) / (s.NuPlus + s.NuMinus)
	return math.Exp(s.ZPlus*s.ZMinus*fGamma + gammaSV)
}

// OsmoticCoefficient returns the osmotic coefficient [-] at ionic
// strength I [mol L⁻¹].
func (s Salt) OsmoticCoefficient(I float64) float64 {
	sq := math.Sqrt(I)
	return 1 - s.ZPlus*s.ZMinus*tcpcAphi*(sq/(1+s.B*sq)) +
		(s.S/(tcpcTemperature*(s.NuPlus+s.NuMinus)))*(2*s.N/(2*s.N+1))*math.Pow(I, 2*s.N)
}

// Activity returns the activity of a solution with concentration
// c [mol m⁻³], in the same units.
func (s Salt) Activity(c float64) float64 {
	return c * s.ActivityCoefficient(c/1000)
}
