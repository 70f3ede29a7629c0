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
	"io"
	"math"
	"sort"

	"github.com/BurntSushi/toml"
)

// Names of the built-in membranes.
const (
	IdealMembranes    = "Ideal CEM/AEM"
	FujifilmMembranes = "Fujifilm CEM/AEM type 10"
)

// Membrane holds the properties of a pair of anion and cation exchange
// membranes.
type Membrane struct {
	Name string

	RAEM float64 // AEM area resistance [Ω m²]
	RCEM float64 // CEM area resistance [Ω m²]

	Permselectivity  float64 // average permselectivity [-]
	SaltDiffusivity  float64 // NaCl diffusion coefficient in the membrane [m² s⁻¹]
	WaterDiffusivity float64 // water diffusion coefficient in the membrane [m² s⁻¹]
	Thickness        float64 // [m]
	ElectroOsmosis   float64 // electro-osmotic water transport number [-]
}

// Validate checks that the membrane properties are physically meaningful.
func (m Membrane) Validate() error {
	checks := []struct {
		field string
		v     float64
		ok    bool
		want  string
	}{
		{"RAEM", m.RAEM, m.RAEM > 0, "should be >0"},
		{"RCEM", m.RCEM, m.RCEM > 0, "should be >0"},
		{"Permselectivity", m.Permselectivity, m.Permselectivity > 0 && m.Permselectivity <= 1, "should be in (0, 1]"},
		{"SaltDiffusivity", m.SaltDiffusivity, m.SaltDiffusivity >= 0, "should be >=0"},
		{"WaterDiffusivity", m.WaterDiffusivity, m.WaterDiffusivity >= 0, "should be >=0"},
		{"Thickness", m.Thickness, m.Thickness > 0, "should be >0"},
		{"ElectroOsmosis", m.ElectroOsmosis, m.ElectroOsmosis >= 0, "should be >=0"},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || !c.ok {
			return &ValidationError{Field: "Membrane." + c.field, Value: c.v, Reason: c.want}
		}
	}
	return nil
}

// Membranes is a library of membranes indexed by name.
type Membranes map[string]Membrane

// DefaultMembranes returns the built-in membranes.
func DefaultMembranes() Membranes {
	return Membranes{
		IdealMembranes: {
			Name:            IdealMembranes,
			RAEM:            1.0e-4,
			RCEM:            1.0e-4,
			Permselectivity: 0.90,
			Thickness:       80e-6,
		},
		FujifilmMembranes: {
			Name:             FujifilmMembranes,
			RAEM:             1.77e-4,
			RCEM:             2.69e-4,
			Permselectivity:  0.946,
			SaltDiffusivity:  1.5e-12,
			WaterDiffusivity: 4.5e-9,
			Thickness:        145e-6,
			ElectroOsmosis:   6,
		},
	}
}

// Lookup returns the membrane with the given name.
func (ms Membranes) Lookup(name string) (Membrane, error) {
	m, ok := ms[name]
	if !ok {
		return Membrane{}, fmt.Errorf("%w %q; available membranes are %q", ErrUnknownMembrane, name, ms.Names())
	}
	return m, nil
}

// Names returns the sorted membrane names.
func (ms Membranes) Names() []string {
	names := make([]string, 0, len(ms))
	for n := range ms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge returns a library holding the membranes in ms and o. Entries in o
// replace entries in ms with the same name.
func (ms Membranes) Merge(o Membranes) Membranes {
	out := make(Membranes, len(ms)+len(o))
	for n, m := range ms {
		out[n] = m
	}
	for n, m := range o {
		out[n] = m
	}
	return out
}

// ReadMembranes reads a membrane library in TOML format, where each
// membrane is a [[Membrane]] table, e.g.:
//
//	[[Membrane]]
//	Name = "Custom"
//	RAEM = 1.5e-4
//	RCEM = 2.0e-4
//	Permselectivity = 0.95
//	Thickness = 100e-6
func ReadMembranes(r io.Reader) (Membranes, error) {
	var f struct {
		Membrane []Membrane
	}
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("red: reading membrane library: %v", err)
	}
	ms := make(Membranes, len(f.Membrane))
	for i, m := range f.Membrane {
		if m.Name == "" {
			return nil, fmt.Errorf("red: reading membrane library: membrane %d has no name", i)
		}
		if _, ok := ms[m.Name]; ok {
			return nil, fmt.Errorf("red: reading membrane library: duplicate membrane %q", m.Name)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("red: reading membrane library: membrane %q: %w", m.Name, err)
		}
		ms[m.Name] = m
	}
	return ms, nil
}
