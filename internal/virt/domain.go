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

package virt

import (
	"libvirt.org/go/libvirtxml"

	"github.com/NVIDIA/vfio-hook/internal/pci"
)

// PassthroughDevices returns the host PCI addresses of the domain's PCI
// hostdev entries, in document order and without duplicates.
func PassthroughDevices(domain *libvirtxml.Domain) []string {
	if domain == nil || domain.Devices == nil {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, hostdev := range domain.Devices.Hostdevs {
		if hostdev.SubsysPCI == nil || hostdev.SubsysPCI.Source == nil {
			continue
		}
		addr := hostdev.SubsysPCI.Source.Address
		if addr == nil {
			continue
		}
		id := pci.Format(value(addr.Domain), value(addr.Bus), value(addr.Slot), value(addr.Function))
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Networks returns the names of the virtual networks the domain's
// interfaces are connected to, without duplicates.
func Networks(domain *libvirtxml.Domain) []string {
	if domain == nil || domain.Devices == nil {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, iface := range domain.Devices.Interfaces {
		if iface.Source == nil || iface.Source.Network == nil {
			continue
		}
		name := iface.Source.Network.Network
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func value(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}
