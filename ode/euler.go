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

package ode

import (
	"context"

	"gonum.org/v1/gonum/floats"
)

// euler integrates with o.Substeps forward Euler steps between
// consecutive grid points.
func euler(ctx context.Context, f Func, y0 []float64, grid []float64, o Options) ([][]float64, error) {
	out := make([][]float64, len(grid))
	out[0] = clone(y0)

	y := clone(y0)
	dy := make([]float64, len(y0))
	steps := 0
	for i := 1; i < len(grid); i++ {
		x0 := grid[i-1]
		h := (grid[i] - x0) / float64(o.Substeps)
		for j := 0; j < o.Substeps; j++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			if steps >= o.MaxSteps {
				return nil, &ConvergenceError{X: x0 + float64(j)*h, Steps: steps, Y: clone(y), Reason: "step budget exhausted"}
			}
			steps++
			x := x0 + float64(j)*h
			if err := f(x, y, dy); err != nil {
				return nil, &ConvergenceError{X: x, Steps: steps, Y: clone(y), Reason: "derivative evaluation failed", Err: err}
			}
			floats.AddScaled(y, h, dy)
			if !finite(y) {
				return nil, &ConvergenceError{X: x + h, Steps: steps, Y: clone(y), Reason: "non-finite state"}
			}
		}
		out[i] = clone(y)
	}
	return out, nil
}
