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
	"html/template"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ctessum/gobra"
	red "github.com/diegopintossi/redmodel"
	"github.com/diegopintossi/redmodel/internal/history"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// modelFlags are the flag sets of the commands that run simulations.
	modelFlags := []*pflag.FlagSet{runCmd.PersistentFlags(), sweepCmd.Flags(), serveCmd.Flags()}
	outputFlags := []*pflag.FlagSet{runCmd.PersistentFlags(), sweepCmd.Flags()}
	def := red.DefaultParams()

	// Options are the configuration options available to redmodel.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ResidenceTimeSW",
			usage: `
              ResidenceTimeSW is the residence time of seawater in a
              compartment [s]. It sets the flow rate unless FlowRateSW is
              specified.`,
			defaultVal: def.ResidenceTimeSW,
			flagsets:   modelFlags,
		},
		{
			name: "ResidenceTimeRW",
			usage: `
              ResidenceTimeRW is the residence time of river water in a
              compartment [s]. It sets the flow rate unless FlowRateRW is
              specified.`,
			defaultVal: def.ResidenceTimeRW,
			flagsets:   modelFlags,
		},
		{
			name: "FlowRateSW",
			usage: `
              FlowRateSW is the seawater flow rate per compartment [m³/s].
              If 0, it is calculated from ResidenceTimeSW.`,
			defaultVal: 0.0,
			flagsets:   modelFlags,
		},
		{
			name: "FlowRateRW",
			usage: `
              FlowRateRW is the river water flow rate per compartment [m³/s].
              If 0, it is calculated from ResidenceTimeRW.`,
			defaultVal: 0.0,
			flagsets:   modelFlags,
		},
		{
			name: "Width",
			usage: `
              Width is the width of the flow path [m].`,
			defaultVal: def.Width,
			flagsets:   modelFlags,
		},
		{
			name: "Length",
			usage: `
              Length is the length of the flow path [m].`,
			defaultVal: def.Length,
			flagsets:   modelFlags,
		},
		{
			name: "Thickness",
			usage: `
              Thickness is the thickness of the water compartments
              (the spacer thickness) [m].`,
			defaultVal: def.Thickness,
			flagsets:   modelFlags,
		},
		{
			name: "Membrane",
			usage: `
              Membrane is the name of the ion exchange membrane pair. The
              built-in membranes are "Ideal CEM/AEM" and
              "Fujifilm CEM/AEM type 10"; more can be added with
              MembraneLibrary.`,
			shorthand:  "m",
			defaultVal: def.Membrane.Name,
			flagsets:   modelFlags,
		},
		{
			name: "MembraneLibrary",
			usage: `
              MembraneLibrary is the path to a TOML file with additional
              membranes, each in a [[Membrane]] table. It can include
              environment variables.`,
			defaultVal: "",
			flagsets:   append([]*pflag.FlagSet{membranesCmd.Flags()}, modelFlags...),
		},
		{
			name: "LoadVoltage",
			usage: `
              LoadVoltage is the external load voltage per cell pair [V].
              It must not exceed the open circuit voltage at the inlet.`,
			shorthand:  "u",
			defaultVal: def.LoadVoltage,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags(), serveCmd.Flags()},
		},
		{
			name: "ConcentrationSW0",
			usage: `
              ConcentrationSW0 is the NaCl concentration of the seawater
              at the inlet [mol/m³].`,
			defaultVal: def.ConcentrationSW0,
			flagsets:   modelFlags,
		},
		{
			name: "ConcentrationRW0",
			usage: `
              ConcentrationRW0 is the NaCl concentration of the river
              water at the inlet [mol/m³].`,
			defaultVal: def.ConcentrationRW0,
			flagsets:   modelFlags,
		},
		{
			name: "Temperature",
			usage: `
              Temperature is the temperature of the solutions [K].`,
			defaultVal: def.Temperature,
			flagsets:   modelFlags,
		},
		{
			name: "CellPairs",
			usage: `
              CellPairs is the number of cell pairs in the stack.`,
			defaultVal: def.CellPairs,
			flagsets:   modelFlags,
		},
		{
			name: "ObstructionFactor",
			usage: `
              ObstructionFactor accounts for the increase of the
              compartment resistance caused by the spacers.`,
			defaultVal: def.ObstructionFactor,
			flagsets:   modelFlags,
		},
		{
			name: "Intervals",
			usage: `
              Intervals is the number of points along the flow path at
              which results are calculated, including both ends.`,
			shorthand:  "n",
			defaultVal: def.Intervals,
			flagsets:   modelFlags,
		},
		{
			name: "Method",
			usage: `
              Method is the integration method: "dopri5" (adaptive
              Dormand-Prince) or "euler".`,
			defaultVal: "dopri5",
			flagsets:   modelFlags,
		},
		{
			name: "RelTol",
			usage: `
              RelTol is the relative error tolerance of the integrator.`,
			defaultVal: 1e-8,
			flagsets:   modelFlags,
		},
		{
			name: "AbsTol",
			usage: `
              AbsTol is the absolute error tolerance of the integrator
              [mol/m³].`,
			defaultVal: 1e-10,
			flagsets:   modelFlags,
		},
		{
			name: "MaxSteps",
			usage: `
              MaxSteps is the maximum number of integration steps.`,
			defaultVal: 100000,
			flagsets:   modelFlags,
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output file location.
              The format is chosen by the extension, either .xlsx or .json.
              It can include environment variables, and can be a blob
              storage location (file://, gs://, s3://, mem://).`,
			shorthand:  "o",
			defaultVal: "red_output.xlsx",
			flagsets:   outputFlags,
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   outputFlags,
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies additional variables to include in
              the output file, in the format {"VariableName":"Expression",...}.
              Expressions can use the profile variables x, cSW, cRW, E, R,
              J and Pd, the results Power, StackPower, PdAvg, Current,
              EMFAvg, EtaEnergy and EtaThermo, the parameters U, W, L, d,
              N, T, fSW and fRW, and the functions exp, log, abs, sqrt, min
              and max.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "PlotDir",
			usage: `
              PlotDir is a directory where PNG plots of the results are
              saved. If blank, no plots are saved.`,
			defaultVal: "",
			flagsets:   outputFlags,
		},
		{
			name: "HistoryDB",
			usage: `
              HistoryDB is the path to a SQLite database where a record of
              each simulation is kept. If blank, no record is kept.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags(), sweepCmd.Flags(), serveCmd.Flags(), historyCmd.Flags()},
		},
		{
			name: "LoadMin",
			usage: `
              LoadMin is the lowest load voltage in a sweep [V].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "LoadMax",
			usage: `
              LoadMax is the highest load voltage in a sweep [V]. If 0, it
              is the open circuit voltage at the inlet.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "LoadSteps",
			usage: `
              LoadSteps is the number of load voltages in a sweep.`,
			defaultVal: 21,
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of simulations to run in parallel. If
              0, the number of processors is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "http",
			usage: `
              http specifies the address the API server listens on.`,
			defaultVal: "localhost:8080",
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
		{
			name: "CacheSize",
			usage: `
              CacheSize is the number of simulation results the API server
              keeps in memory.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
		{
			name: "limit",
			usage: `
              limit is the maximum number of records to show. If 0, all
              records are shown.`,
			defaultVal: 20,
			flagsets:   []*pflag.FlagSet{historyCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RED")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := strings.TrimSpace(b.String())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	runCmd.AddCommand(steadyCmd)
	Root.AddCommand(sweepCmd)
	Root.AddCommand(membranesCmd)
	Root.AddCommand(historyCmd)
	Root.AddCommand(serveCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("redutil: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "red",
	Short: "A reverse electrodialysis stack model.",
	Long: `red simulates a reverse electrodialysis (RED) stack in which seawater and
river water flow in parallel on either side of a pair of ion exchange membranes.
It calculates the NaCl concentration and electromotive force profiles along the
flow path and the power and efficiency of the stack.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'RED_var' where 'var' is the
name of the variable to be set. Path variables are additionally
allowed to contain environment variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of redmodel.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("redmodel v%s\n", red.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a simulation. Use the subcommands specified below to
choose a run mode. (Currently 'steady' is the only available run mode.)`,
	DisableAutoGenTag: true,
}

// steadyCmd is a command that runs a steady-state simulation.
var steadyCmd = &cobra.Command{
	Use:   "steady",
	Short: "Run a steady-state simulation.",
	Long: `steady calculates the steady-state concentration, electromotive force,
current density and power density profiles along the flow path at a fixed
load voltage, and the power and efficiencies of the stack.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ParamsFromConfig(Cfg)
		if err != nil {
			return err
		}
		o, err := ODEOptionsFromConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := GetStringMapString("OutputVariables", Cfg)
		if err != nil {
			return err
		}
		return Run(
			context.Background(),
			cmd,
			checkLogFile(os.ExpandEnv(Cfg.GetString("LogFile")), outputFile),
			outputFile,
			os.ExpandEnv(Cfg.GetString("PlotDir")),
			os.ExpandEnv(Cfg.GetString("HistoryDB")),
			checkOutputVars(outputVars),
			p, o,
		)
	},
	DisableAutoGenTag: true,
}

// sweepCmd is a command that runs simulations over a range of load
// voltages.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Find the load voltage with maximum power.",
	Long: `sweep runs steady-state simulations at evenly spaced load voltages between
LoadMin and LoadMax and reports the power curve of the stack and the load
voltage at which the power is highest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := SweepParamsFromConfig(Cfg)
		if err != nil {
			return err
		}
		o, err := ODEOptionsFromConfig(Cfg)
		if err != nil {
			return err
		}
		loads, err := LoadsFromConfig(Cfg, p)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		return RunSweep(
			context.Background(),
			cmd,
			checkLogFile(os.ExpandEnv(Cfg.GetString("LogFile")), outputFile),
			outputFile,
			os.ExpandEnv(Cfg.GetString("PlotDir")),
			os.ExpandEnv(Cfg.GetString("HistoryDB")),
			p, o, loads, Cfg.GetInt("Workers"),
		)
	},
	DisableAutoGenTag: true,
}

// membranesCmd is a command that lists the available membranes.
var membranesCmd = &cobra.Command{
	Use:   "membranes",
	Short: "List the available membranes.",
	Long: `membranes lists the built-in membranes and the membranes in MembraneLibrary,
if specified, with their properties.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ms, err := MembranesFromConfig(Cfg)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "Name\tRAEM [Ω m²]\tRCEM [Ω m²]\tα [-]\tD_NaCl [m²/s]\tD_w [m²/s]\tH [m]\tk_eosm [-]")
		for _, name := range ms.Names() {
			m := ms[name]
			fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%g\t%g\t%g\n", m.Name, m.RAEM, m.RCEM,
				m.Permselectivity, m.SaltDiffusivity, m.WaterDiffusivity, m.Thickness, m.ElectroOsmosis)
		}
		return w.Flush()
	},
	DisableAutoGenTag: true,
}

// historyCmd is a command that lists past simulations.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past simulations.",
	Long: `history lists the simulations recorded in HistoryDB, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := os.ExpandEnv(Cfg.GetString("HistoryDB"))
		if path == "" {
			return fmt.Errorf("redutil: you need to specify the HistoryDB configuration variable")
		}
		db, err := history.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		records, err := db.List(context.Background(), Cfg.GetInt("limit"))
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), records)
	},
	DisableAutoGenTag: true,
}

// serveCmd is a command that starts the API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server.",
	Long: `serve starts an HTTP server with a JSON API for running simulations.
The configuration options give the default values of the simulation
parameters, which can be changed in each request.

	POST /api/solve         run a steady-state simulation
	POST /api/sweep         run a load voltage sweep
	POST /api/plot/{kind}   plot a simulation (concentration, emf or power)
	GET  /api/membranes     list the available membranes
	GET  /api/history       list past simulations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd.OutOrStdout())
		s, cleanup, err := serverFromConfig(Cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()
		addr := Cfg.GetString("http")
		log.Infof("API server listening on %s", addr)
		return http.ListenAndServe(addr, s)
	},
	DisableAutoGenTag: true,
}

// StartWebServer starts the web server.
func StartWebServer() {
	log := newLogger(os.Stdout)
	if err := setConfig(); err != nil {
		log.Warn(err) // The configuration can be fixed in the browser.
	}

	http.HandleFunc("/setConfig", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		configFile := r.Form.Get("config")
		Root.PersistentFlags().Set("config", configFile)
		err := setConfig()
		if err != nil {
			http.Error(w, err.Error(), 204)
			return
		}
		config := make(map[string]interface{})
		for _, option := range options {
			config[option.name] = Cfg.Get(option.name)
		}
		e := json.NewEncoder(w)
		if err := e.Encode(config); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	})

	api, cleanup, err := serverFromConfig(Cfg, log)
	if err != nil {
		log.Warnf("redutil: the API is not available: %v", err)
	} else {
		defer cleanup()
		http.Handle("/api/", api)
	}

	log.Info("Loading front-end...")

	for _, cmd := range []*cobra.Command{Root, versionCmd, runCmd, steadyCmd,
		sweepCmd, membranesCmd, historyCmd, serveCmd} {
		cmd.SilenceUsage = true // We don't want the usage messages in the GUI.
	}

	const address = "localhost:7171"
	const tmpl = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>redmodel</title>
	<style>
		html, body {padding: 0; margin: 2% 0; font-family: sans-serif;}
		.container { max-width: 700px; margin: 0 auto; padding: 10px; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #262730; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] code { font-weight: bold; }
		div[id^="gobra-"] input { font-family: monospace; margin-left: .2em; width: 50%; outline:none; }
		.red-border{ border: 1px solid #f63366; }
		.green-border{ border: 1px solid #3c5; }
		.blue-border{ border: 1px solid #35c; }
	</style>
</head>
<body>
<div class="container">
	<h1>Reverse electrodialysis stack model</h1>
	<p>Configure the simulation below. Results are written to OutputFile;
	plots of a simulation at the current settings can also be requested from
	<code>/api/plot/concentration</code>, <code>/api/plot/emf</code> and
	<code>/api/plot/power</code>.</p>
	<p>
		Color key: black=default;
		<font color="red">red</font>=error;
		<font color="green">green</font>=value from config file;
		<font color="blue">blue</font>=user entered
	</p>
	<div>
		{{.}}
	</div>
	<footer>
		© 2022 the redmodel authors
	</footer>
</div>

<script>
// If the configuration file is changed, send the new file path
// to the server and update fields

let allFlags = [...document.querySelectorAll('[data-name]')];
allFlags.forEach(x => {
	let inputField = x.children[0];
	inputField.addEventListener("input", e => {
		inputField.classList.remove("green-border");
		inputField.classList.add("blue-border");
	})
})

let configInput = allFlags.filter(x => x.dataset.name == "config")[0].children[0];
configInput.addEventListener("input", e => {
	fetch("http://` + address + `/setConfig?config="+encodeURIComponent(configInput.value))
		.then( res => {
			if (res.status !== 200) {
				if (res.status == 204) {
					configInput.classList.remove("blue-border");
					configInput.classList.remove("green-border");
					configInput.classList.add("red-border");
				} else {
					console.log("Error fetching /setConfig: ", res.statusText);
				}
			} else {
				res.json().then( data => {
					configInput.classList.remove("red-border");
					for (let key in data)
						for(let f of allFlags)
							if (f.dataset.name == key) {
								let input = f.children[0];
								var newValue = JSON.stringify(data[key]).replace(/^"+|"+$/g,'');
								if (input.value != newValue) {
									input.value = newValue
									input.classList.remove("blue-border");
									input.classList.add("green-border");
								}
							}
				})
			}
		})
		.catch( err => {
			console.log("Error fetching /setConfig", err)
		})
})
</script>
</body>
</html>`

	output := template.Must(template.New("").Parse(tmpl))
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: output}
	log.Info("Server starting... ")
	open.Run("http://" + address)
	fmt.Println("If not opened automatically, please visit http://" + address)
	server.Start()
}

// newLogger returns a logger writing to w.
func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.Out = w
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	return l
}
