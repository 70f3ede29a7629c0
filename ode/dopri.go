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
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dormand–Prince 5(4) tableau.
const (
	c2, c3, c4, c5 = 1. / 5., 3. / 10., 4. / 5., 8. / 9.

	a21 = 1. / 5.
	a31 = 3. / 40.
	a32 = 9. / 40.
	a41 = 44. / 45.
	a42 = -56. / 15.
	a43 = 32. / 9.
	a51 = 19372. / 6561.
	a52 = -25360. / 2187.
	a53 = 64448. / 6561.
	a54 = -212. / 729.
	a61 = 9017. / 3168.
	a62 = -355. / 33.
	a63 = 46732. / 5247.
	a64 = 49. / 176.
	a65 = -5103. / 18656.
	a71 = 35. / 384.
	a73 = 500. / 1113.
	a74 = 125. / 192.
	a75 = -2187. / 6784.
	a76 = 11. / 84.

	// Differences between the 5th and 4th order weights.
	e1 = 71. / 57600.
	e3 = -71. / 16695.
	e4 = 71. / 1920.
	e5 = -17253. / 339200.
	e6 = 22. / 525.
	e7 = -1. / 40.
)

// Step size controller settings.
const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 5.0
)

type dopriStepper struct {
	f    Func
	n    int
	k    [7][]float64
	tmp  []float64
	ynew []float64
	yerr []float64
}

func newDopriStepper(f Func, n int) *dopriStepper {
	s := &dopriStepper{
		f:    f,
		n:    n,
		tmp:  make([]float64, n),
		ynew: make([]float64, n),
		yerr: make([]float64, n),
	}
	for i := range s.k {
		s.k[i] = make([]float64, n)
	}
	return s
}

// stage sets s.tmp = y + h*Σ a_j*k_j.
func (s *dopriStepper) stage(y []float64, h float64, a ...float64) {
	copy(s.tmp, y)
	for j, aj := range a {
		if aj != 0 {
			floats.AddScaled(s.tmp, h*aj, s.k[j])
		}
	}
}

// step attempts a step of size h from (x, y) assuming s.k[0] holds f(x, y).
// On success s.ynew holds the new state, s.k[6] holds f(x+h, ynew) and
// the returned value is the scaled error norm.
func (s *dopriStepper) step(x float64, y []float64, h float64, o Options) (float64, error) {
	s.stage(y, h, a21)
	if err := s.f(x+c2*h, s.tmp, s.k[1]); err != nil {
		return 0, err
	}
	s.stage(y, h, a31, a32)
	if err := s.f(x+c3*h, s.tmp, s.k[2]); err != nil {
		return 0, err
	}
	s.stage(y, h, a41, a42, a43)
	if err := s.f(x+c4*h, s.tmp, s.k[3]); err != nil {
		return 0, err
	}
	s.stage(y, h, a51, a52, a53, a54)
	if err := s.f(x+c5*h, s.tmp, s.k[4]); err != nil {
		return 0, err
	}
	s.stage(y, h, a61, a62, a63, a64, a65)
	if err := s.f(x+h, s.tmp, s.k[5]); err != nil {
		return 0, err
	}
	s.stage(y, h, a71, 0, a73, a74, a75, a76)
	copy(s.ynew, s.tmp)
	if !finite(s.ynew) {
		return math.Inf(1), nil
	}
	if err := s.f(x+h, s.ynew, s.k[6]); err != nil {
		return 0, err
	}

	for i := range s.yerr {
		s.yerr[i] = h * (e1*s.k[0][i] + e3*s.k[2][i] + e4*s.k[3][i] +
			e5*s.k[4][i] + e6*s.k[5][i] + e7*s.k[6][i])
	}
	var sum float64
	for i, ei := range s.yerr {
		sc := o.AbsTol + o.RelTol*math.Max(math.Abs(y[i]), math.Abs(s.ynew[i]))
		sum += (ei / sc) * (ei / sc)
	}
	return math.Sqrt(sum / float64(s.n)), nil
}

func dopri5(ctx context.Context, f Func, y0 []float64, grid []float64, o Options) ([][]float64, error) {
	out := make([][]float64, len(grid))
	out[0] = clone(y0)
	if len(grid) == 1 {
		return out, nil
	}

	s := newDopriStepper(f, len(y0))
	x := grid[0]
	y := clone(y0)
	if err := f(x, y, s.k[0]); err != nil {
		return nil, &ConvergenceError{X: x, Y: clone(y), Reason: "derivative evaluation failed", Err: err}
	}

	// Start with the smallest grid interval, limited to 1% of the span.
	h := (grid[len(grid)-1] - grid[0]) / 100
	for i := 1; i < len(grid); i++ {
		h = math.Min(h, grid[i]-grid[i-1])
	}

	steps := 0
	for i := 1; i < len(grid); i++ {
		target := grid[i]
		for x < target {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			if steps >= o.MaxSteps {
				return nil, &ConvergenceError{X: x, Steps: steps, Y: clone(y), Reason: "step budget exhausted"}
			}
			steps++

			hs := h
			clipped := false
			if remaining := target - x; hs >= remaining || remaining-hs < o.MinStep {
				hs = remaining
				clipped = true
			}

			errNorm, ferr := s.step(x, y, hs, o)
			if ferr != nil || errNorm > 1 || math.IsNaN(errNorm) {
				// Reject: shrink the step and try again.
				factor := minFactor
				if ferr == nil && !math.IsInf(errNorm, 0) && !math.IsNaN(errNorm) {
					factor = math.Max(minFactor, safety*math.Pow(errNorm, -0.2))
				}
				h = hs * factor
				if h < o.MinStep {
					reason := "step size underflow"
					if ferr == nil && (math.IsInf(errNorm, 0) || math.IsNaN(errNorm)) {
						reason = "non-finite state"
					}
					return nil, &ConvergenceError{X: x, Steps: steps, Y: clone(y), Reason: reason, Err: ferr}
				}
				continue
			}

			// Accept.
			if clipped {
				x = target
			} else {
				x += hs
			}
			copy(y, s.ynew)
			s.k[0], s.k[6] = s.k[6], s.k[0]

			factor := maxFactor
			if errNorm > 0 {
				factor = math.Min(maxFactor, math.Max(minFactor, safety*math.Pow(errNorm, -0.2)))
			}
			if !clipped || hs*factor > h {
				h = hs * factor
			}
		}
		out[i] = clone(y)
	}
	return out, nil
}
