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


package redutil

import (
	"context"

	"github.com/ctessum/requestcache"
	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/internal/hash"
	"github.com/diegopintossi/redmodel/ode"
)

// SolveFunc runs a simulation.
type SolveFunc func(ctx context.Context, p red.Params, o ode.Options) (*red.Solution, error)

type solveRequest struct {
	Params  red.Params
	Options ode.Options
}

// solveResult carries errors as part of the result, so that they reach
// every deduplicated request.
type solveResult struct {
	s   *red.Solution
	err error
}

// SolveCache runs simulations, deduplicating identical concurrent
// requests and keeping recent results in memory. Cached solutions are
// shared and must not be modified.
type SolveCache struct {
	c *requestcache.Cache
}

// NewSolveCache returns a cache that runs up to workers simulations at
// a time with solve and keeps up to size results.
func NewSolveCache(solve SolveFunc, workers, size int) *SolveCache {
	return &SolveCache{
		c: requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(solveRequest)
			s, err := solve(ctx, r.Params, r.Options)
			return solveResult{s: s, err: err}, nil
		}, workers, requestcache.Deduplicate(), requestcache.Memory(size)),
	}
}

// Solve returns the solution for p and o. Invalid parameters are
// rejected before reaching the cache.
func (c *SolveCache) Solve(ctx context.Context, p red.Params, o ode.Options) (*red.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	// Results are shared between requests, so a canceled request must
	// not cancel the simulation.
	req := c.c.NewRequest(context.WithoutCancel(ctx), solveRequest{Params: p, Options: o}, hash.Key(p, o))
	r, err := req.Result()
	if err != nil {
		return nil, err
	}
	res := r.(solveResult)
	return res.s, res.err
}

// Requests returns the number of requests received by the cache and by
// the simulation function, respectively.
func (c *SolveCache) Requests() (cache, solved int) {
	r := c.c.Requests()
	return r[0], r[len(r)-1]
}
