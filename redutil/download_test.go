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
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lnashier/viper"
)

func TestOpenInput(t *testing.T) {
	want, err := os.ReadFile("testdata/membranes.toml")
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	defer ts.Close()
	abs, err := filepath.Abs("testdata/membranes.toml")
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		"testdata/membranes.toml",
		ts.URL + "/membranes.toml",
		"file://" + filepath.ToSlash(abs),
	} {
		t.Run(path, func(t *testing.T) {
			r, err := openInput(context.Background(), path)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(want) {
				t.Errorf("got %q", got)
			}
		})
	}

	for _, path := range []string{
		"testdata/missing.toml",
		ts.URL + "/missing.toml",
		"file://" + filepath.ToSlash(filepath.Join(filepath.Dir(abs), "missing.toml")),
	} {
		if _, err := openInput(context.Background(), path); err == nil {
			t.Errorf("%s: expected an error", path)
		}
	}

	cfg := viper.New()
	cfg.Set("MembraneLibrary", ts.URL+"/membranes.toml")
	ms, err := MembranesFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ms["Leaky"]; !ok {
		t.Error("downloaded library was not merged")
	}
}
