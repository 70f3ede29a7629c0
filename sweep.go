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
	"context"
	"fmt"
	"runtime"

	"github.com/diegopintossi/redmodel/ode"
	"golang.org/x/sync/errgroup"
)

// SweepPoint is the solution at one load voltage of a sweep.
type SweepPoint struct {
	LoadVoltage float64
	Solution    *Solution
}

// LoadRange returns n load voltages evenly spaced between min and max,
// inclusive.
func LoadRange(min, max float64, n int) []float64 {
	if n <= 1 {
		return []float64{min}
	}
	loads := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range loads {
		loads[i] = min + float64(i)*step
	}
	loads[n-1] = max
	return loads
}

// Sweep solves the model for each load voltage, using up to workers
// concurrent solves (GOMAXPROCS if workers < 1). The points are returned
// in the order of loads. The first error encountered cancels the
// remaining solves.
func Sweep(ctx context.Context, p Params, loads []float64, o ode.Options, workers int) ([]SweepPoint, error) {
	if len(loads) == 0 {
		return nil, fmt.Errorf("red: sweep needs at least one load voltage")
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(-1)
	}
	points := make([]SweepPoint, len(loads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range loads {
		i, u := i, u
		g.Go(func() error {
			pp := p
			pp.LoadVoltage = u
			s, err := Solve(gctx, pp, o)
			if err != nil {
				return fmt.Errorf("red: sweep at load voltage %g V: %w", u, err)
			}
			points[i] = SweepPoint{LoadVoltage: u, Solution: s}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// MaxPower returns the sweep point with the highest average power
// density.
func MaxPower(points []SweepPoint) (SweepPoint, error) {
	if len(points) == 0 {
		return SweepPoint{}, fmt.Errorf("red: no sweep points")
	}
	best := points[0]
	for _, pt := range points[1:] {
		if pt.Solution.PowerDensityAvg > best.Solution.PowerDensityAvg {
			best = pt
		}
	}
	return best, nil
}
