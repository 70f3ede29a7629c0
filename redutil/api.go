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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/internal/history"
	"github.com/diegopintossi/redmodel/ode"
	"github.com/gorilla/mux"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
)

// apiParams are the simulation parameters of an API request. Fields
// missing from a request keep the server defaults.
type apiParams struct {
	ResidenceTimeSW   float64 `json:"residenceTimeSW"`
	ResidenceTimeRW   float64 `json:"residenceTimeRW"`
	FlowRateSW        float64 `json:"flowRateSW"`
	FlowRateRW        float64 `json:"flowRateRW"`
	Width             float64 `json:"width"`
	Length            float64 `json:"length"`
	Thickness         float64 `json:"thickness"`
	Membrane          string  `json:"membrane"`
	LoadVoltage       float64 `json:"loadVoltage"`
	ConcentrationSW0  float64 `json:"concentrationSW0"`
	ConcentrationRW0  float64 `json:"concentrationRW0"`
	Temperature       float64 `json:"temperature"`
	CellPairs         int     `json:"cellPairs"`
	ObstructionFactor float64 `json:"obstructionFactor"`
	Intervals         int     `json:"intervals"`
	Method            string  `json:"method"`

	// Sweep settings.
	LoadMin   float64 `json:"loadMin"`
	LoadMax   float64 `json:"loadMax"`
	LoadSteps int     `json:"loadSteps"`
}

func newAPIParams(p red.Params, o ode.Options) apiParams {
	return apiParams{
		ResidenceTimeSW:   p.ResidenceTimeSW,
		ResidenceTimeRW:   p.ResidenceTimeRW,
		FlowRateSW:        p.FlowRateSW,
		FlowRateRW:        p.FlowRateRW,
		Width:             p.Width,
		Length:            p.Length,
		Thickness:         p.Thickness,
		Membrane:          p.Membrane.Name,
		LoadVoltage:       p.LoadVoltage,
		ConcentrationSW0:  p.ConcentrationSW0,
		ConcentrationRW0:  p.ConcentrationRW0,
		Temperature:       p.Temperature,
		CellPairs:         p.CellPairs,
		ObstructionFactor: p.ObstructionFactor,
		Intervals:         p.Intervals,
		Method:            o.Method.String(),
		LoadSteps:         21,
	}
}

// Server serves the JSON API.
type Server struct {
	router    *mux.Router
	defaults  apiParams
	opts      ode.Options
	membranes red.Membranes
	cache     *SolveCache
	workers   int
	history   *history.DB
	log       logrus.FieldLogger
}

// NewServer returns an API server. defaults and o give the parameters
// of requests that do not specify them, and membranes the available
// membranes. Simulations are run through cache. If hist is not nil,
// simulations are recorded in it.
func NewServer(defaults red.Params, o ode.Options, membranes red.Membranes, cache *SolveCache,
	workers int, hist *history.DB, log logrus.FieldLogger) *Server {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(-1)
	}
	s := &Server{
		router:    mux.NewRouter(),
		defaults:  newAPIParams(defaults, o),
		opts:      o,
		membranes: membranes,
		cache:     cache,
		workers:   workers,
		history:   hist,
		log:       log,
	}
	s.router.HandleFunc("/api/solve", s.handleSolve).Methods("POST")
	s.router.HandleFunc("/api/sweep", s.handleSweep).Methods("POST")
	s.router.HandleFunc("/api/plot/{kind}", s.handlePlot).Methods("POST")
	s.router.HandleFunc("/api/membranes", s.handleMembranes).Methods("GET")
	s.router.HandleFunc("/api/history", s.handleHistory).Methods("GET")
	return s
}

// serverFromConfig returns an API server with defaults from cfg and a
// function that releases its resources.
func serverFromConfig(cfg *viper.Viper, log logrus.FieldLogger) (*Server, func(), error) {
	p, err := ParamsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	o, err := ODEOptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	ms, err := MembranesFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	workers := cfg.GetInt("Workers")
	if workers < 1 {
		workers = runtime.GOMAXPROCS(-1)
	}
	size := cfg.GetInt("CacheSize")
	if size < 1 {
		size = 1
	}
	var hist *history.DB
	cleanup := func() {}
	if path := cfg.GetString("HistoryDB"); path != "" {
		if hist, err = history.Open(path); err != nil {
			return nil, nil, err
		}
		cleanup = func() { hist.Close() }
	}
	cache := NewSolveCache(red.Solve, workers, size)
	return NewServer(p, o, ms, cache, workers, hist, log), cleanup, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// errBadRequest marks errors in the request itself.
var errBadRequest = errors.New("bad request")

// status returns the HTTP status code for err.
func status(err error) int {
	switch {
	case errors.Is(err, red.ErrInvalidParameter), errors.Is(err, red.ErrUnknownMembrane),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, red.ErrNotConverged):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := status(err)
	msg := err.Error()
	if code == http.StatusUnprocessableEntity {
		msg = "model did not converge: " + msg
	}
	if code == http.StatusInternalServerError {
		s.log.WithError(err).Error("API request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	buf.WriteTo(w)
}

// decode reads the request parameters on top of the defaults.
func (s *Server) decode(r *http.Request) (red.Params, ode.Options, apiParams, error) {
	a := s.defaults
	if r.Body != nil && r.ContentLength != 0 {
		d := json.NewDecoder(r.Body)
		d.DisallowUnknownFields()
		if err := d.Decode(&a); err != nil {
			return red.Params{}, ode.Options{}, a, fmt.Errorf("%w: decoding parameters: %v", errBadRequest, err)
		}
	}
	m, err := s.membranes.Lookup(a.Membrane)
	if err != nil {
		return red.Params{}, ode.Options{}, a, err
	}
	o := s.opts
	if o.Method, err = ode.ParseMethod(a.Method); err != nil {
		return red.Params{}, ode.Options{}, a, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	p := red.DefaultParams()
	p.ResidenceTimeSW = a.ResidenceTimeSW
	p.ResidenceTimeRW = a.ResidenceTimeRW
	p.FlowRateSW = a.FlowRateSW
	p.FlowRateRW = a.FlowRateRW
	p.Width = a.Width
	p.Length = a.Length
	p.Thickness = a.Thickness
	p.Membrane = m
	p.LoadVoltage = a.LoadVoltage
	p.ConcentrationSW0 = a.ConcentrationSW0
	p.ConcentrationRW0 = a.ConcentrationRW0
	p.Temperature = a.Temperature
	p.CellPairs = a.CellPairs
	p.ObstructionFactor = a.ObstructionFactor
	p.Intervals = a.Intervals
	return p, o, a, nil
}

func (s *Server) record(ctx context.Context, kind string, p red.Params, sol *red.Solution) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Add(ctx, newRecord(history.NewID(), kind, "", p, sol)); err != nil {
		s.log.WithError(err).Warn("recording simulation")
	}
}

func (s *Server) solve(r *http.Request) (*red.Solution, error) {
	p, o, _, err := s.decode(r)
	if err != nil {
		return nil, err
	}
	sol, err := s.cache.Solve(r.Context(), p, o)
	if err != nil {
		return nil, err
	}
	s.record(r.Context(), "steady", p, sol)
	return sol, nil
}

func (s *Server) sweep(r *http.Request) ([]red.SweepPoint, error) {
	p, o, a, err := s.decode(r)
	if err != nil {
		return nil, err
	}
	p.LoadVoltage = 0
	if err := p.Validate(); err != nil {
		return nil, err
	}
	max := a.LoadMax
	if max <= 0 {
		max = red.OpenCircuitVoltage(p)
	}
	if a.LoadSteps < 1 || a.LoadSteps > 1000 {
		return nil, fmt.Errorf("%w: loadSteps=%d but should be between 1 and 1000", errBadRequest, a.LoadSteps)
	}
	loads := red.LoadRange(a.LoadMin, max, a.LoadSteps)
	points, err := red.Sweep(r.Context(), p, loads, o, s.workers)
	if err != nil {
		return nil, err
	}
	if best, err := red.MaxPower(points); err == nil {
		s.record(r.Context(), "sweep", best.Solution.Params, best.Solution)
	}
	return points, nil
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	sol, err := s.solve(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, sol)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	points, err := s.sweep(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := NewSweepResult(points)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	var p *plot.Plot
	var err error
	switch kind := mux.Vars(r)["kind"]; kind {
	case "concentration", "emf":
		var sol *red.Solution
		if sol, err = s.solve(r); err == nil {
			if kind == "emf" {
				p, err = red.EMFPlot(sol)
			} else {
				p, err = red.ConcentrationPlot(sol)
			}
		}
	case "power":
		var points []red.SweepPoint
		if points, err = s.sweep(r); err == nil {
			p, err = red.PowerCurvePlot(points)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown plot %q; valid plots are concentration, emf and power", kind), http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := red.WritePNG(&buf, p); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	buf.WriteTo(w)
}

func (s *Server) handleMembranes(w http.ResponseWriter, r *http.Request) {
	ms := make([]red.Membrane, 0, len(s.membranes))
	for _, name := range s.membranes.Names() {
		ms = append(ms, s.membranes[name])
	}
	s.writeJSON(w, ms)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, []history.Record{})
		return
	}
	records, err := s.history.List(r.Context(), 100)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	s.writeJSON(w, records)
}
