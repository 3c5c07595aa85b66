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
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	vfioAliasPrefix = "alias vfio_pci:"
	wildcard        = "*"
)

// modAlias is the decomposed form of a PCI modalias string:
//
// vNNNNNNNNdNNNNNNNNsvNNNNNNNNsdNNNNNNNNbcNNscNNiNN
//
// Any field may be a wildcard ("*") in modules.alias patterns.
type modAlias struct {
	vendor               string // v
	device               string // d
	subvendor            string // sv
	subdevice            string // sd
	baseClass            string // bc
	subClass             string // sc
	programmingInterface string // i
}

// vfioAlias is one `alias vfio_pci:<pattern> <driver>` line of modules.alias.
type vfioAlias struct {
	modAlias *modAlias
	driver   string
}

func (m *modAlias) fields() []*string {
	return []*string{
		&m.vendor,
		&m.device,
		&m.subvendor,
		&m.subdevice,
		&m.baseClass,
		&m.subClass,
		&m.programmingInterface,
	}
}

func parseModAliasString(input string) (*modAlias, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("modalias string is empty")
	}

	// Drop the bus prefix ("pci:" or "vfio_pci:").
	_, rest, found := strings.Cut(input, ":")
	if !found || strings.Contains(rest, ":") {
		return nil, fmt.Errorf("unexpected modalias format: %q", input)
	}
	if !strings.HasPrefix(rest, "v") {
		return nil, fmt.Errorf("modalias must start with 'v', got: %q", rest)
	}
	rest = rest[1:]

	ma := &modAlias{}
	fields := ma.fields()
	for i, delim := range []string{"d", "sv", "sd", "bc", "sc", "i"} {
		var before string
		before, rest, found = strings.Cut(rest, delim)
		if !found {
			return nil, fmt.Errorf("failed to find delimiter %q in %q", delim, input)
		}
		*fields[i] = before
	}
	*fields[len(fields)-1] = rest

	return ma, nil
}

// getVFIOAliases returns the vfio driver aliases found in the content of a
// modules.alias file. Malformed lines are skipped.
func getVFIOAliases(input string) []vfioAlias {
	var aliases []vfioAlias
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, vfioAliasPrefix) {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 3 {
			continue
		}
		ma, err := parseModAliasString(parts[1])
		if err != nil {
			continue
		}
		aliases = append(aliases, vfioAlias{
			modAlias: ma,
			driver:   parts[2],
		})
	}
	return aliases
}

// findBestMatch returns the driver of the alias matching the device with
// the fewest wildcards, or an empty string if nothing matches.
func findBestMatch(device *modAlias, aliases []vfioAlias) string {
	var best string
	bestWildcards := math.MaxInt

	for _, alias := range aliases {
		matches, wildcards := matchModAlias(device, alias.modAlias)
		if matches && wildcards < bestWildcards {
			best = alias.driver
			bestWildcards = wildcards
		}
	}
	return best
}

func matchModAlias(device, pattern *modAlias) (bool, int) {
	wildcards := 0
	deviceFields := device.fields()
	for i, p := range pattern.fields() {
		if *p == wildcard {
			wildcards++
			continue
		}
		if *deviceFields[i] != *p {
			return false, wildcards
		}
	}
	return true, wildcards
}

// VFIOVariant returns the vfio driver module that best matches the device
// according to the running kernel's modules.alias, e.g. "vfio_pci" or
// "nvgrace_gpu_vfio_pci". An empty string means no vfio driver claims it.
func (l *sysfsLib) VFIOVariant(id string) (string, error) {
	raw, err := readAttribute(l.devicePath(id), "modalias")
	if err != nil {
		return "", fmt.Errorf("failed to read modalias of %s: %w", id, err)
	}
	device, err := parseModAliasString(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse modalias of %s: %w", id, err)
	}

	release, err := getKernelRelease()
	if err != nil {
		return "", fmt.Errorf("failed to get kernel release: %w", err)
	}
	aliasPath := filepath.Join(l.hostRoot, "lib", "modules", release, "modules.alias")
	content, err := os.ReadFile(aliasPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", aliasPath, err)
	}

	return findBestMatch(device, getVFIOAliases(string(content))), nil
}

func getKernelRelease() (string, error) {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uname.Release[:]), nil
}
