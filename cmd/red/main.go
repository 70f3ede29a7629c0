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


// Command red is a command-line interface for the reverse electrodialysis
// stack model.
package main

import (
	"fmt"
	"os"

	"github.com/diegopintossi/redmodel/redutil"
	"github.com/joho/godotenv"
)

func main() {
	// Settings such as RED_MembraneLibrary or cloud credentials can be
	// kept in a .env file in the working directory.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println(err)
		os.Exit(-1)
	}

	var commands int
	for _, arg := range os.Args { // Count the number of supplied commands.
		if arg[0] != '-' {
			commands++
		}
	}
	if commands == 1 { // If only one command was supplied, start the GUI server.
		redutil.StartWebServer()
	}

	// If more than one command was supplied, run in CLI mode.
	if err := redutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
