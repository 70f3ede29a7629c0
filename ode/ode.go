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

// Package ode integrates small systems of non-stiff ordinary differential
// equations over a caller-supplied grid, reporting the state at every grid
// point.
package ode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Func calculates the derivatives dy/dx at position x and state y and
// stores them in dy. A non-nil error aborts or shortens the current step.
type Func func(x float64, y, dy []float64) error

// Method is an integration scheme.
type Method int

const (
	// DormandPrince is the adaptive explicit Runge–Kutta 5(4) pair of
	// Dormand and Prince (1980).
	DormandPrince Method = iota

	// Euler is the forward Euler method with a fixed number of substeps
	// between grid points.
	Euler
)

func (m Method) String() string {
	switch m {
	case DormandPrince:
		return "dopri5"
	case Euler:
		return "euler"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod returns the method with the given name
// ("dopri5" or "euler", case insensitive).
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dopri5", "dormandprince", "rk45", "":
		return DormandPrince, nil
	case "euler":
		return Euler, nil
	default:
		return 0, fmt.Errorf("ode: unknown integration method %q (valid options are dopri5 and euler)", name)
	}
}

// Options holds integrator settings. The zero value of each field
// selects the corresponding default from DefaultOptions.
type Options struct {
	Method Method

	RelTol float64 // relative error tolerance (DormandPrince)
	AbsTol float64 // absolute error tolerance (DormandPrince)

	// MaxSteps is the maximum number of attempted steps over the
	// whole grid.
	MaxSteps int

	// MinStep is the smallest step allowed before giving up. If zero
	// it is set to 1e-12 times the length of the grid.
	MinStep float64

	// Substeps is the number of Euler steps between two grid points.
	Substeps int
}

// DefaultOptions returns the default integrator settings.
func DefaultOptions() Options {
	return Options{
		Method:   DormandPrince,
		RelTol:   1e-8,
		AbsTol:   1e-10,
		MaxSteps: 100000,
		Substeps: 50,
	}
}

func (o Options) withDefaults(span float64) Options {
	d := DefaultOptions()
	if o.RelTol <= 0 {
		o.RelTol = d.RelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = d.AbsTol
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.Substeps <= 0 {
		o.Substeps = d.Substeps
	}
	if o.MinStep <= 0 {
		o.MinStep = 1e-12 * span
	}
	return o
}

// ErrNotConverged is returned (wrapped in a *ConvergenceError) when the
// integration cannot be carried to the end of the grid.
var ErrNotConverged = errors.New("ode: integration did not converge")

// ConvergenceError describes where and why an integration failed.
type ConvergenceError struct {
	X      float64   // position of the last accepted state
	Steps  int       // number of attempted steps
	Y      []float64 // last accepted state
	Reason string
	Err    error // error returned by the derivative function, if any
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("ode: integration did not converge at x=%g after %d steps: %s", e.X, e.Steps, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrNotConverged.
func (e *ConvergenceError) Is(target error) bool { return target == ErrNotConverged }

// Unwrap returns the error from the derivative function, if any.
func (e *ConvergenceError) Unwrap() error { return e.Err }

// Solve integrates f from grid[0], where the state is y0, through every
// point of grid, which must be strictly increasing. The returned slice
// holds one copy of the state per grid point; the first is a copy of y0.
func Solve(ctx context.Context, f Func, y0 []float64, grid []float64, o Options) ([][]float64, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("ode: empty grid")
	}
	if len(y0) == 0 {
		return nil, fmt.Errorf("ode: empty initial state")
	}
	for i := 1; i < len(grid); i++ {
		if !(grid[i] > grid[i-1]) {
			return nil, fmt.Errorf("ode: grid must be strictly increasing; grid[%d]=%g, grid[%d]=%g", i-1, grid[i-1], i, grid[i])
		}
	}
	if !finite(y0) {
		return nil, &ConvergenceError{X: grid[0], Y: clone(y0), Reason: "non-finite initial state"}
	}
	o = o.withDefaults(grid[len(grid)-1] - grid[0])

	switch o.Method {
	case DormandPrince:
		return dopri5(ctx, f, y0, grid, o)
	case Euler:
		return euler(ctx, f, y0, grid, o)
	default:
		return nil, fmt.Errorf("ode: unsupported method %v", o.Method)
	}
}

func finite(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clone(y []float64) []float64 {
	return append([]float64(nil), y...)
}
