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

package hook

import (
	"errors"
	"fmt"
	"strings"
)

const absent = "-"

// ErrUsage is returned for an argument vector that is not a hook invocation.
var ErrUsage = errors.New("usage: <object> <operation> <sub-operation> <extra>")

// Invocation describes one lifecycle event as passed by libvirt. Absent
// fields are empty.
type Invocation struct {
	Object       string
	Operation    string
	SubOperation string
	Extra        string
}

// ParseInvocation builds an Invocation from the positional arguments that
// follow the program name.
func ParseInvocation(args []string) (Invocation, error) {
	if len(args) < 4 {
		return Invocation{}, fmt.Errorf("%w: got %d arguments", ErrUsage, len(args))
	}

	inv := Invocation{
		Object:       optional(args[0]),
		Operation:    optional(args[1]),
		SubOperation: optional(args[2]),
		Extra:        optional(args[3]),
	}
	if inv.Operation == "" {
		return Invocation{}, fmt.Errorf("%w: operation is required", ErrUsage)
	}
	return inv, nil
}

func optional(arg string) string {
	if arg == absent {
		return ""
	}
	return arg
}

func (i Invocation) String() string {
	fields := []string{i.Object, i.Operation, i.SubOperation, i.Extra}
	for j, f := range fields {
		if f == "" {
			fields[j] = absent
		}
	}
	return strings.Join(fields, " ")
}
