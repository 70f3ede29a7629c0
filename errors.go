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
	"errors"
	"fmt"

	"github.com/diegopintossi/redmodel/ode"
)

var (
	// ErrInvalidParameter is returned (wrapped in a *ValidationError) when
	// a simulation parameter is outside of its physically valid range.
	ErrInvalidParameter = errors.New("red: invalid parameter")

	// ErrNotConverged is returned when the model equations cannot be
	// integrated along the whole flow path or the solution is not finite.
	ErrNotConverged = ode.ErrNotConverged

	// ErrUnknownMembrane is returned when a membrane name is not in the
	// membrane library.
	ErrUnknownMembrane = errors.New("red: unknown membrane")

	// ErrNonPhysicalState is returned by the evaluator for states with
	// non-positive or non-finite concentrations.
	ErrNonPhysicalState = errors.New("red: non-physical state")
)

// ValidationError describes an invalid parameter.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("red: invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidParameter.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidParameter }
