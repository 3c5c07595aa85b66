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
	"fmt"
	"io"

	"libvirt.org/go/libvirtxml"
)

// Description gives handlers access to the XML description of the object
// the event is about. Nothing is read until a handler asks for it.
type Description interface {
	Raw() ([]byte, error)
	Domain() (*libvirtxml.Domain, error)
}

type description struct {
	r    io.Reader
	read bool
	raw  []byte
	err  error
}

// NewDescription returns a Description that reads r at most once.
func NewDescription(r io.Reader) Description {
	return &description{r: r}
}

func (d *description) Raw() ([]byte, error) {
	if !d.read {
		d.read = true
		d.raw, d.err = io.ReadAll(d.r)
		if d.err != nil {
			d.err = fmt.Errorf("failed to read object description: %w", d.err)
		}
	}
	return d.raw, d.err
}

func (d *description) Domain() (*libvirtxml.Domain, error) {
	raw, err := d.Raw()
	if err != nil {
		return nil, err
	}
	domain := &libvirtxml.Domain{}
	if err := domain.Unmarshal(string(raw)); err != nil {
		return nil, fmt.Errorf("failed to parse domain description: %w", err)
	}
	return domain, nil
}
