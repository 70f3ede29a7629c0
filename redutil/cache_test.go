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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/ode"
)

func TestSolveCache(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	solve := func(ctx context.Context, p red.Params, o ode.Options) (*red.Solution, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return red.Solve(ctx, p, o)
	}
	c := NewSolveCache(solve, 2, 10)
	p := red.DefaultParams()
	p.Intervals = 20
	o := ode.DefaultOptions()

	// Identical concurrent requests are solved once.
	const n = 5
	var wg sync.WaitGroup
	solutions := make([]*red.Solution, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			solutions[i], errs[i] = c.Solve(context.Background(), p, o)
		}(i)
	}
	for {
		if received, _ := c.Requests(); received == n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if solutions[i] != solutions[0] {
			t.Errorf("request %d got a different solution", i)
		}
	}

	// Later identical requests are answered from memory.
	s, err := c.Solve(context.Background(), p, o)
	if err != nil {
		t.Fatal(err)
	}
	if s != solutions[0] {
		t.Error("solution was not cached")
	}
	if calls != 1 {
		t.Errorf("solve called %d times; want 1", calls)
	}

	p.LoadVoltage = 0.05
	if _, err := c.Solve(context.Background(), p, o); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("solve called %d times; want 2", calls)
	}
	received, solved := c.Requests()
	if received != n+2 || solved != 2 {
		t.Errorf("requests = %d, %d; want %d, 2", received, solved, n+2)
	}
}

func TestSolveCacheErrors(t *testing.T) {
	var calls int32
	c := NewSolveCache(func(ctx context.Context, p red.Params, o ode.Options) (*red.Solution, error) {
		atomic.AddInt32(&calls, 1)
		return red.Solve(ctx, p, o)
	}, 1, 10)

	p := red.DefaultParams()
	p.LoadVoltage = 1
	if _, err := c.Solve(context.Background(), p, ode.DefaultOptions()); !errors.Is(err, red.ErrInvalidParameter) {
		t.Errorf("got %v; want ErrInvalidParameter", err)
	}
	if calls != 0 {
		t.Error("invalid parameters should not be solved")
	}

	p = red.DefaultParams()
	o := ode.DefaultOptions()
	o.MaxSteps = 10
	for i := 0; i < 2; i++ {
		if _, err := c.Solve(context.Background(), p, o); !errors.Is(err, red.ErrNotConverged) {
			t.Errorf("got %v; want ErrNotConverged", err)
		}
	}
	if calls != 1 {
		t.Errorf("solve called %d times; want 1", calls)
	}

	// A canceled request still gets the result.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.LoadVoltage = 0.06
	if _, err := c.Solve(ctx, p, ode.DefaultOptions()); err != nil {
		t.Errorf("canceled request: %v", err)
	}
}
