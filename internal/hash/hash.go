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


// Package hash computes keys that identify simulation requests, for use
// in caches.
package hash

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Key returns a hexadecimal key for the given values. Values that cannot
// be gob-encoded, such as structs without exported fields, are printed
// with spew instead.
func Key(parts ...interface{}) string {
	h := fnv.New128a()
	var buf bytes.Buffer
	for i, p := range parts {
		buf.Reset()
		fmt.Fprintf(h, "%d:", i)
		if err := gob.NewEncoder(&buf).Encode(p); err == nil {
			h.Write(buf.Bytes())
			continue
		}
		printer.Fprintf(h, "%#v", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
