/*
 * Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pci

import (
	"fmt"
	"regexp"
	"strconv"
)

var addressPattern = regexp.MustCompile(`(?i)^([0-9a-f]{4}):([0-9a-f]{2}):([0-9a-f]{2})\.([0-7])$`)

// Address identifies a PCI device by its domain:bus:slot.function.
type Address struct {
	Domain   uint16
	Bus      uint8
	Slot     uint8
	Function uint8
}

// Format renders a PCI address in the canonical sysfs form DDDD:BB:SS.F.
//
// Values wider than their field (16 bits of domain, 8 of bus, 5 of slot,
// 3 of function) are masked to that width. Callers passing values that were
// not read from a PCI address get an identifier for a different device, so
// range checks belong with whoever produced the numbers.
func Format(domain, bus, slot, function uint) string {
	return fmt.Sprintf("%04x:%02x:%02x.%1x", domain&0xffff, bus&0xff, slot&0x1f, function&0x7)
}

func (a Address) String() string {
	return Format(uint(a.Domain), uint(a.Bus), uint(a.Slot), uint(a.Function))
}

// ParseAddress parses the canonical DDDD:BB:SS.F form, case-insensitively.
func ParseAddress(raw string) (Address, error) {
	m := addressPattern.FindStringSubmatch(raw)
	if len(m) != 5 {
		return Address{}, fmt.Errorf("invalid pci address %q", raw)
	}

	var fields [4]uint64
	for i := range fields {
		v, err := strconv.ParseUint(m[i+1], 16, 16)
		if err != nil {
			return Address{}, fmt.Errorf("invalid pci address %q: %w", raw, err)
		}
		fields[i] = v
	}
	if fields[1] > 0xff || fields[2] > 0x1f {
		return Address{}, fmt.Errorf("invalid pci address %q: bus or slot out of range", raw)
	}

	return Address{
		Domain:   uint16(fields[0]),
		Bus:      uint8(fields[1]),
		Slot:     uint8(fields[2]),
		Function: uint8(fields[3]),
	}, nil
}
