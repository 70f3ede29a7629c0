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
	"fmt"
	"io"
	"os"
	"time"

	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/internal/history"
	"github.com/diegopintossi/redmodel/ode"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
)

// runLogger creates the log file and returns a logger that writes to it
// and to the output of cmd, with a field identifying the run.
func runLogger(cmd *cobra.Command, logFile, runID string) (*logrus.Entry, *os.File, error) {
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("redutil: problem creating log file: %v", err)
	}
	l := newLogger(io.MultiWriter(cmd.OutOrStdout(), f))
	return l.WithField("run", runID), f, nil
}

// addHistory records r in the history database at path, if path is not
// empty.
func addHistory(ctx context.Context, path string, r history.Record) error {
	if path == "" {
		return nil
	}
	db, err := history.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Add(ctx, r)
	return err
}

func newRecord(id, kind, output string, p red.Params, s *red.Solution) history.Record {
	return history.Record{
		ID:                      id,
		Kind:                    kind,
		Membrane:                p.Membrane.Name,
		LoadVoltage:             p.LoadVoltage,
		ConcentrationSW0:        p.ConcentrationSW0,
		ConcentrationRW0:        p.ConcentrationRW0,
		Power:                   s.Power,
		PowerDensityAvg:         s.PowerDensityAvg,
		EnergyEfficiency:        s.EnergyEfficiency,
		ThermodynamicEfficiency: s.ThermodynamicEfficiency,
		Output:                  output,
	}
}

// Run runs a steady-state simulation.
//
// cmd is the cobra.Command instance where Run is called from; log
// messages are written to its output and to logFile.
//
// outputFile is the path to the desired output file location, either
// an .xlsx or a .json file. It may be a blob storage location, in which
// case the file is written locally and uploaded at the end of the run.
//
// plotDir, if not empty, is the directory where PNG plots of the
// profiles are saved. It may also be a blob storage location.
//
// historyDB, if not empty, is the path to a SQLite database where a
// record of the simulation is added.
//
// outputVars specifies additional output variables, as expressions
// evaluated by red.Outputter.
//
// p and o are the simulation parameters and integrator settings.
func Run(ctx context.Context, cmd *cobra.Command, logFile, outputFile, plotDir, historyDB string,
	outputVars map[string]string, p red.Params, o ode.Options) error {

	startTime := time.Now()
	runID := history.NewID()

	var upload uploader
	log, logfile, err := runLogger(cmd, upload.maybeUpload(logFile), runID)
	if err != nil {
		return err
	}
	defer logfile.Close()

	outputter, err := red.NewOutputter(outputVars, nil)
	if err != nil {
		return err
	}
	localOutput := upload.maybeUpload(outputFile)

	cleanup := []red.StackManipulator{red.Log(log), writeOutput(localOutput)}
	if plotDir != "" {
		cleanup = append(cleanup, func(m *red.Model) error {
			return writePlots(solutionPlots(m.Solution), func(name string) string {
				return upload.maybeUpload(plotPath(plotDir, name))
			})
		})
	}
	cleanup = append(cleanup, upload.uploadOutput(ctx), func(m *red.Model) error {
		return addHistory(ctx, historyDB, newRecord(runID, "steady", outputFile, m.Params, m.Solution))
	})

	m := &red.Model{
		InitFuncs: []red.StackManipulator{
			red.SetParams(p),
			outputter.CheckOutputVars(),
		},
		RunFuncs: []red.StackManipulator{
			red.Integrate(ctx, o),
			red.Postprocess(),
			outputter.Output(),
		},
		CleanupFuncs: cleanup,
	}

	log.WithFields(logrus.Fields{
		"membrane": p.Membrane.Name,
		"load":     p.LoadVoltage,
		"method":   o.Method,
	}).Info("Initializing model...")
	if err := m.Init(); err != nil {
		return err
	}
	log.Info("Integrating model equations...")
	if err := m.Run(); err != nil {
		log.WithError(err).Error("simulation failed")
		return err
	}
	log.Infof("Writing output to %s...", outputFile)
	if err := m.Cleanup(); err != nil {
		return err
	}
	log.Infof("Simulation finished in %v.", time.Since(startTime))
	return nil
}

// RunSweep runs steady-state simulations at each of the load voltages in
// loads, using up to workers simultaneous simulations, and writes the
// power curve and the profiles at the load voltage with the highest
// power to outputFile. The other arguments are as for Run.
func RunSweep(ctx context.Context, cmd *cobra.Command, logFile, outputFile, plotDir, historyDB string,
	p red.Params, o ode.Options, loads []float64, workers int) error {

	if len(loads) == 0 {
		return fmt.Errorf("redutil: no load voltages to sweep")
	}
	startTime := time.Now()
	runID := history.NewID()

	var upload uploader
	log, logfile, err := runLogger(cmd, upload.maybeUpload(logFile), runID)
	if err != nil {
		return err
	}
	defer logfile.Close()
	localOutput := upload.maybeUpload(outputFile)

	log.WithFields(logrus.Fields{
		"membrane": p.Membrane.Name,
		"loads":    len(loads),
		"method":   o.Method,
	}).Infof("Sweeping load voltages from %.4g to %.4g V...", loads[0], loads[len(loads)-1])
	points, err := red.Sweep(ctx, p, loads, o, workers)
	if err != nil {
		log.WithError(err).Error("sweep failed")
		return err
	}
	for _, pt := range points {
		log.Debugf("U=%.4g V: power density %.4g W/m²", pt.LoadVoltage, pt.Solution.PowerDensityAvg)
	}
	r, err := NewSweepResult(points)
	if err != nil {
		return err
	}
	log.WithField("load", r.Best).Infof("Maximum power density %.4g W/m² (power %.4g W)",
		r.Solution.PowerDensityAvg, r.Solution.Power)

	log.Infof("Writing output to %s...", outputFile)
	if err := writeSweep(localOutput, r); err != nil {
		return err
	}
	if plotDir != "" {
		plots := solutionPlots(r.Solution)
		plots["power.png"] = func() (*plot.Plot, error) { return red.PowerCurvePlot(points) }
		if err := writePlots(plots, func(name string) string {
			return upload.maybeUpload(plotPath(plotDir, name))
		}); err != nil {
			return err
		}
	}
	if err := upload.upload(ctx); err != nil {
		return err
	}
	best := r.Solution.Params
	if err := addHistory(ctx, historyDB, newRecord(runID, "sweep", outputFile, best, r.Solution)); err != nil {
		return err
	}
	log.Infof("Sweep finished in %v.", time.Since(startTime))
	return nil
}
