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
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	seawaterColor   = color.RGBA{R: 0xf6, G: 0x33, B: 0x66, A: 0xff}
	riverWaterColor = color.RGBA{R: 0x26, G: 0x27, B: 0x30, A: 0xff}
)

// Default plot dimensions.
const (
	PlotWidth  = 6 * vg.Inch
	PlotHeight = 3 * vg.Inch
)

func xy(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}
	return pts
}

func addLine(p *plot.Plot, label string, c color.Color, x, y []float64) error {
	l, err := plotter.NewLine(xy(x, y))
	if err != nil {
		return fmt.Errorf("red: plotting %s: %v", label, err)
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	p.Add(l)
	p.Legend.Add(label, l)
	return nil
}

// ConcentrationPlot plots the NaCl concentrations in both compartments
// along the flow path.
func ConcentrationPlot(s *Solution) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "L [m]"
	p.Y.Label.Text = "C [mM]"
	if err := addLine(p, "[NaCl] in SW", seawaterColor, s.X, s.CSW); err != nil {
		return nil, err
	}
	if err := addLine(p, "[NaCl] in RW", riverWaterColor, s.X, s.CRW); err != nil {
		return nil, err
	}
	p.Legend.Top = true
	return p, nil
}

// EMFPlot plots the electromotive force along the flow path.
func EMFPlot(s *Solution) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "L [m]"
	p.Y.Label.Text = "emf [V]"
	if err := addLine(p, "emf", seawaterColor, s.X, s.EMF); err != nil {
		return nil, err
	}
	p.Y.Min, p.Y.Max = 0, 0.160
	p.Legend.Top = true
	return p, nil
}

// PowerCurvePlot plots the average power density of each sweep point
// against its load voltage.
func PowerCurvePlot(points []SweepPoint) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Uload [V]"
	p.Y.Label.Text = "Pd [W/m²]"
	u := make([]float64, len(points))
	pd := make([]float64, len(points))
	for i, pt := range points {
		u[i], pd[i] = pt.LoadVoltage, pt.Solution.PowerDensityAvg
	}
	if err := addLine(p, "power density", seawaterColor, u, pd); err != nil {
		return nil, err
	}
	sc, err := plotter.NewScatter(xy(u, pd))
	if err != nil {
		return nil, fmt.Errorf("red: plotting power curve: %v", err)
	}
	sc.Color = riverWaterColor
	p.Add(sc)
	return p, nil
}

// WritePNG renders p as a PNG image of the default size to w.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("red: rendering plot: %v", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("red: writing plot: %v", err)
	}
	return nil
}
