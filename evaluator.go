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

// Evaluator calculates the right hand side of the co-flow model
// equations (J. Veerman, PhD thesis, chapter 8):
//
//	dcSW/dx = -W·T_NaCl/f_SW + W·cSW·T_w/f_SW
//	dcRW/dx = +W·T_NaCl/f_RW - W·cRW·T_w/f_RW
//
// where the salt and water fluxes through the membranes are
//
//	T_NaCl = J/F + 2·D_NaCl·(cSW - cRW)/H
//	T_w    = -2·D_w·V_w·(cSW - cRW)/H + k_eosm·V_w·J/F
//
// and the current density J = (E - U)/R_cell follows from the Nernst
// potential E and the cell pair resistance R_cell.
//
// An Evaluator has no mutable state and may be used concurrently.
type Evaluator struct {
	p        Params
	fSW, fRW float64
	preF     float64 // α·2RT/F [V]
}

// NewEvaluator validates p and returns an evaluator for it.
func NewEvaluator(p Params) (*Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return newEvaluator(p), nil
}

func newEvaluator(p Params) *Evaluator {
	return &Evaluator{
		p:    p,
		fSW:  p.FlowSW(),
		fRW:  p.FlowRW(),
		preF: p.Membrane.Permselectivity * 2 * GasConstant * p.Temperature / Faraday,
	}
}

// Params returns the parameters of the evaluator.
func (e *Evaluator) Params() Params { return e.p }

// ChannelResistance returns the area resistance [Ω m²] of a water
// compartment with concentration c [mol m⁻³].
func (e *Evaluator) ChannelResistance(c float64) float64 {
	return e.p.ObstructionFactor * e.p.Thickness / (MolarConductivity * c)
}

// EMF returns the electromotive force [V] of a cell pair separating
// solutions with concentrations cSW and cRW [mol m⁻³].
func (e *Evaluator) EMF(cSW, cRW float64) float64 {
	return e.preF * math.Log(e.p.Salt.Activity(cSW)/e.p.Salt.Activity(cRW))
}

// CellState returns the electromotive force [V], the cell pair
// resistance [Ω m²] and the current density [A m⁻²] at the given
// concentrations.
func (e *Evaluator) CellState(cSW, cRW float64) (emf, resistance, current float64) {
	emf = e.EMF(cSW, cRW)
	resistance = e.p.Membrane.RAEM + e.p.Membrane.RCEM +
		e.ChannelResistance(cSW) + e.ChannelResistance(cRW)
	current = (emf - e.p.LoadVoltage) / resistance
	return
}

// Derivatives stores dq/dx in dq for the state q = [cSW, cRW] at
// position x. The model is independent of x.
func (e *Evaluator) Derivatives(x float64, q, dq []float64) error {
	cSW, cRW := q[0], q[1]
	if !(cSW > 0) || !(cRW > 0) || math.IsInf(cSW, 0) || math.IsInf(cRW, 0) {
		return fmt.Errorf("%w: cSW=%g, cRW=%g at x=%g", ErrNonPhysicalState, cSW, cRW, x)
	}
	_, _, j := e.CellState(cSW, cRW)

	m := e.p.Membrane
	dc := cSW - cRW
	// Salt [mol s⁻¹ m⁻²] and water [m s⁻¹] fluxes.
	saltFlux := j/Faraday + dc*2*m.SaltDiffusivity/m.Thickness
	waterFlux := -dc*2*m.WaterDiffusivity*WaterMolarVolume/m.Thickness +
		m.ElectroOsmosis*WaterMolarVolume*j/Faraday

	w := e.p.Width
	dq[0] = -w*saltFlux/e.fSW + w*cSW*waterFlux/e.fSW
	dq[1] = w*saltFlux/e.fRW - w*cRW*waterFlux/e.fRW
	return nil
}

// OpenCircuitVoltage returns the electromotive force [V] of a cell pair
// at the inlet concentrations.
func OpenCircuitVoltage(p Params) float64 {
	return newEvaluator(p).EMF(p.ConcentrationSW0, p.ConcentrationRW0)
}
