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
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
)

// Outputter calculates user-defined output variables from a solution.
//
// outputVariables maps the names of the variables to expressions that
// define how they should be calculated. Expressions are evaluated at every
// point along the flow path and can use the profile variables
//
//	x, cSW, cRW, E, R, J, Pd
//
// (position, concentrations, electromotive force, cell pair resistance,
// current density and power density), the scalar results
//
//	Power, StackPower, PdAvg, Current, EMFAvg, EtaEnergy, EtaThermo
//
// and the parameters
//
//	U, W, L, d, N, T, fSW, fRW
//
// (load voltage, width, length, channel thickness, number of cell pairs,
// temperature and flow rates), as well as the functions defined in
// outputFunctions.
type Outputter struct {
	outputVariables map[string]string
	expressions     map[string]*govaluate.EvaluableExpression
	outputFunctions map[string]govaluate.ExpressionFunction
}

func oneArg(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("red: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("red: invalid argument %v for function '%s'", args[0], name)
		}
		return f(v), nil
	}
}

func twoArgs(name string, f func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("red: got %d arguments for function '%s', but needs 2", len(args), name)
		}
		a, ok1 := args[0].(float64)
		b, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("red: invalid arguments %v for function '%s'", args, name)
		}
		return f(a, b), nil
	}
}

// NewOutputter parses the output variable expressions. In addition to
// the functions in outputFunctions, the functions exp(x), log(x), abs(x),
// sqrt(x), min(a, b) and max(a, b) are available.
func NewOutputter(outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	funcs := map[string]govaluate.ExpressionFunction{
		"exp":  oneArg("exp", math.Exp),
		"log":  oneArg("log", math.Log),
		"abs":  oneArg("abs", math.Abs),
		"sqrt": oneArg("sqrt", math.Sqrt),
		"min":  twoArgs("min", math.Min),
		"max":  twoArgs("max", math.Max),
	}
	for k, v := range outputFunctions {
		funcs[k] = v
	}
	o := &Outputter{
		outputVariables: make(map[string]string, len(outputVariables)),
		expressions:     make(map[string]*govaluate.EvaluableExpression, len(outputVariables)),
		outputFunctions: funcs,
	}
	for name, expr := range outputVariables {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("red: empty output variable name for expression %q", expr)
		}
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, funcs)
		if err != nil {
			return nil, fmt.Errorf("red: parsing output variable %s=%q: %v", name, expr, err)
		}
		o.outputVariables[name] = expr
		o.expressions[name] = e
	}
	return o, nil
}

// Names returns the sorted names of the output variables.
func (o *Outputter) Names() []string {
	names := make([]string, 0, len(o.expressions))
	for n := range o.expressions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// modelVariables lists the variables available to output expressions.
var modelVariables = []string{
	"x", "cSW", "cRW", "E", "R", "J", "Pd",
	"Power", "StackPower", "PdAvg", "Current", "EMFAvg", "EtaEnergy", "EtaThermo",
	"U", "W", "L", "d", "N", "T", "fSW", "fRW",
}

// CheckOutputVars returns a function that checks that the output
// expressions only use available variables.
func (o *Outputter) CheckOutputVars() StackManipulator {
	return func(*Model) error {
		known := make(map[string]bool, len(modelVariables))
		for _, v := range modelVariables {
			known[v] = true
		}
		for _, name := range o.Names() {
			for _, v := range o.expressions[name].Vars() {
				if !known[v] {
					return fmt.Errorf("red: output variable %s=%q uses unknown variable %q; valid variables are %v",
						name, o.outputVariables[name], v, modelVariables)
				}
			}
		}
		return nil
	}
}

// Output returns a function that evaluates the output variables and
// stores them in the model solution.
func (o *Outputter) Output() StackManipulator {
	return func(m *Model) error {
		if m.Solution == nil {
			return fmt.Errorf("red: Output called before Postprocess")
		}
		out, err := o.Evaluate(m.Solution)
		if err != nil {
			return err
		}
		m.Solution.Outputs = out
		return nil
	}
}

// Evaluate calculates the output variables at every point of s.
func (o *Outputter) Evaluate(s *Solution) (map[string][]float64, error) {
	p := s.Params
	vars := map[string]interface{}{
		"Power":      s.Power,
		"StackPower": s.StackPower,
		"PdAvg":      s.PowerDensityAvg,
		"Current":    s.Current,
		"EMFAvg":     s.EMFAvg,
		"EtaEnergy":  s.EnergyEfficiency,
		"EtaThermo":  s.ThermodynamicEfficiency,
		"U":          p.LoadVoltage,
		"W":          p.Width,
		"L":          p.Length,
		"d":          p.Thickness,
		"N":          float64(p.CellPairs),
		"T":          p.Temperature,
		"fSW":        p.FlowSW(),
		"fRW":        p.FlowRW(),
	}
	out := make(map[string][]float64, len(o.expressions))
	for _, name := range o.Names() {
		out[name] = make([]float64, len(s.X))
	}
	for i := range s.X {
		vars["x"] = s.X[i]
		vars["cSW"] = s.CSW[i]
		vars["cRW"] = s.CRW[i]
		vars["E"] = s.EMF[i]
		vars["R"] = s.Resistance[i]
		vars["J"] = s.CurrentDensity[i]
		vars["Pd"] = s.PowerDensity[i]
		for name, e := range o.expressions {
			r, err := e.Evaluate(vars)
			if err != nil {
				return nil, fmt.Errorf("red: evaluating output variable %s: %v", name, err)
			}
			v, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("red: output variable %s evaluates to %v (%T), not a number", name, r, r)
			}
			out[name][i] = v
		}
	}
	return out, nil
}
