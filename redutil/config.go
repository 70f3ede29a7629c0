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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/ode"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// getFloat returns the named configuration variable as a float64.
func getFloat(cfg *viper.Viper, name string) (float64, error) {
	v, err := cast.ToFloat64E(cfg.Get(name))
	if err != nil {
		return 0, fmt.Errorf("redutil: parsing configuration variable %s: %v", name, err)
	}
	return v, nil
}

// getInt returns the named configuration variable as an int.
func getInt(cfg *viper.Viper, name string) (int, error) {
	v, err := cast.ToIntE(cfg.Get(name))
	if err != nil {
		return 0, fmt.Errorf("redutil: parsing configuration variable %s: %v", name, err)
	}
	return v, nil
}

// MembranesFromConfig returns the built-in membranes merged with the
// membranes in the file specified by the MembraneLibrary configuration
// variable, if any. The file can be local, at an http(s) URL or in blob
// storage.
func MembranesFromConfig(cfg *viper.Viper) (red.Membranes, error) {
	ms := red.DefaultMembranes()
	path := os.ExpandEnv(cfg.GetString("MembraneLibrary"))
	if path == "" {
		return ms, nil
	}
	f, err := openInput(context.TODO(), path)
	if err != nil {
		return nil, fmt.Errorf("redutil: opening MembraneLibrary: %v", err)
	}
	defer f.Close()
	lib, err := red.ReadMembranes(f)
	if err != nil {
		return nil, err
	}
	return ms.Merge(lib), nil
}

// ParamsFromConfig returns the simulation parameters specified by cfg.
// The returned parameters are valid.
func ParamsFromConfig(cfg *viper.Viper) (red.Params, error) {
	p, err := readParams(cfg)
	if err != nil {
		return p, err
	}
	return p, p.Validate()
}

// SweepParamsFromConfig is like ParamsFromConfig, but sets the load
// voltage to zero, to be replaced by each load voltage of a sweep.
func SweepParamsFromConfig(cfg *viper.Viper) (red.Params, error) {
	p, err := readParams(cfg)
	if err != nil {
		return p, err
	}
	p.LoadVoltage = 0
	return p, p.Validate()
}

func readParams(cfg *viper.Viper) (red.Params, error) {
	ms, err := MembranesFromConfig(cfg)
	if err != nil {
		return red.Params{}, err
	}
	p := red.DefaultParams()
	p.Membrane, err = ms.Lookup(cfg.GetString("Membrane"))
	if err != nil {
		return p, err
	}

	floats := []struct {
		name string
		v    *float64
	}{
		{"ResidenceTimeSW", &p.ResidenceTimeSW},
		{"ResidenceTimeRW", &p.ResidenceTimeRW},
		{"FlowRateSW", &p.FlowRateSW},
		{"FlowRateRW", &p.FlowRateRW},
		{"Width", &p.Width},
		{"Length", &p.Length},
		{"Thickness", &p.Thickness},
		{"LoadVoltage", &p.LoadVoltage},
		{"ConcentrationSW0", &p.ConcentrationSW0},
		{"ConcentrationRW0", &p.ConcentrationRW0},
		{"Temperature", &p.Temperature},
		{"ObstructionFactor", &p.ObstructionFactor},
	}
	for _, f := range floats {
		if *f.v, err = getFloat(cfg, f.name); err != nil {
			return p, err
		}
	}
	if p.CellPairs, err = getInt(cfg, "CellPairs"); err != nil {
		return p, err
	}
	if p.Intervals, err = getInt(cfg, "Intervals"); err != nil {
		return p, err
	}
	return p, nil
}

// ODEOptionsFromConfig returns the integrator settings specified by cfg.
func ODEOptionsFromConfig(cfg *viper.Viper) (ode.Options, error) {
	o := ode.DefaultOptions()
	var err error
	if o.Method, err = ode.ParseMethod(cfg.GetString("Method")); err != nil {
		return o, err
	}
	if o.RelTol, err = getFloat(cfg, "RelTol"); err != nil {
		return o, err
	}
	if o.AbsTol, err = getFloat(cfg, "AbsTol"); err != nil {
		return o, err
	}
	if o.MaxSteps, err = getInt(cfg, "MaxSteps"); err != nil {
		return o, err
	}
	return o, nil
}

// LoadsFromConfig returns the load voltages of a sweep, as specified
// by the LoadMin, LoadMax and LoadSteps configuration variables. If
// LoadMax is not positive, the sweep ends at the open circuit voltage
// of the stack with parameters p.
func LoadsFromConfig(cfg *viper.Viper, p red.Params) ([]float64, error) {
	min, err := getFloat(cfg, "LoadMin")
	if err != nil {
		return nil, err
	}
	max, err := getFloat(cfg, "LoadMax")
	if err != nil {
		return nil, err
	}
	n, err := getInt(cfg, "LoadSteps")
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = red.OpenCircuitVoltage(p)
	}
	if n < 1 {
		return nil, fmt.Errorf("redutil: LoadSteps=%d but should be >=1", n)
	}
	if min < 0 || min > max {
		return nil, fmt.Errorf("redutil: LoadMin=%g but should be between 0 and LoadMax=%g", min, max)
	}
	return red.LoadRange(min, max, n), nil
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) map[string]string {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// outputFormats are the supported output file extensions.
var outputFormats = map[string]bool{".xlsx": true, ".json": true}

// checkOutputFile makes sure that the output file is specified, has a
// supported format and its directory exists, and expands any environment
// variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`redutil: you need to specify an output file configuration variable (for example: OutputFile="output.xlsx")`)
	}
	f = os.ExpandEnv(f)
	if ext := strings.ToLower(filepath.Ext(f)); !outputFormats[ext] {
		return f, fmt.Errorf("redutil: OutputFile %s has unsupported extension '%s'; use .xlsx or .json", f, ext)
	}
	if IsBlob(f) {
		bucket, _, err := openBlob(context.TODO(), f)
		if err != nil {
			return f, fmt.Errorf("redutil: error when checking OutputFile location: %v", err)
		}
		bucket.Close()
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("redutil: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]string{}, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("redutil: parsing configuration variable %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("redutil: invalid type for configuration variable %s: %#v", varName, i)
	}
}
