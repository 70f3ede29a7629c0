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

// Package red is a steady-state model of a reverse electrodialysis (RED)
// stack with co-flowing seawater (SW) and river water (RW) compartments
// fed with NaCl solutions.
//
// The concentration profiles along the flow path follow a pair of ordinary
// differential equations (Veerman et al., 2011; Simões et al., 2020) that are
// integrated numerically and post-processed into the electromotive force,
// current and power density profiles and the energy and thermodynamic
// efficiencies of the stack. Activities use the three characteristic
// parameter correlation (TCPC) of Ge et al. (2007).
package red

import (
	"fmt"
)

// Version gives the version number.
const Version = "0.3.0"

// Physical constants.
const (
	GasConstant       = 8.3143  // [J mol⁻¹ K⁻¹]
	Faraday           = 96485.0 // [C mol⁻¹]
	WaterMolarVolume  = 18e-6   // [m³ mol⁻¹]
	MolarConductivity = 0.01287 // [m² Ω⁻¹ mol⁻¹], NaCl
)

// StackManipulator is a function that operates on the model.
type StackManipulator func(m *Model) error

// Model holds the state of a simulation. InitFuncs are run by Init,
// RunFuncs by Run and CleanupFuncs by Cleanup, each in order, stopping at
// the first error.
type Model struct {
	InitFuncs    []StackManipulator
	RunFuncs     []StackManipulator
	CleanupFuncs []StackManipulator

	// Params are the simulation parameters, set by SetParams.
	Params Params

	// Solution is the result of the simulation, set by Postprocess.
	Solution *Solution

	eval   *Evaluator
	grid   []float64
	states [][]float64 // [cSW, cRW] at each grid point
}

// Init initializes the simulation.
func (m *Model) Init() error {
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation.
func (m *Model) Run() error {
	for _, f := range m.RunFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup finishes the simulation, e.g. by writing output.
func (m *Model) Cleanup() error {
	for _, f := range m.CleanupFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Grid returns the positions along the flow path [m].
func (m *Model) Grid() []float64 { return m.grid }

// Evaluator returns the derivative evaluator for the model parameters.
// It is nil before SetParams has run.
func (m *Model) Evaluator() *Evaluator { return m.eval }

func (m *Model) requireParams(caller string) error {
	if m.eval == nil {
		return fmt.Errorf("red: %s called before SetParams", caller)
	}
	return nil
}
