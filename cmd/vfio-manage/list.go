//go:build !darwin && !windows

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

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/prometheus/procfs/sysfs"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/vfio-hook/internal/pci"
)

type listCommand struct {
	logger *logrus.Logger
	global *globalOptions
}

type listOptions struct {
	vendor string
}

// newListCommand constructs a list command with the specified logger
func newListCommand(logger *logrus.Logger, global *globalOptions) *cli.Command {
	c := listCommand{
		logger: logger,
		global: global,
	}
	return c.build()
}

// build the list command
func (m listCommand) build() *cli.Command {
	cfg := listOptions{}

	c := cli.Command{
		Name:  "list",
		Usage: "List PCI devices with their current and vfio variant drivers",
		Action: func(c *cli.Context) error {
			vendor, err := parseVendor(cfg.vendor)
			if err != nil {
				return err
			}
			fs, err := sysfs.NewFS(m.global.sysfsRoot)
			if err != nil {
				return fmt.Errorf("failed to open sysfs: %w", err)
			}
			ids, err := pciAddresses(fs, vendor)
			if err != nil {
				return err
			}
			return m.print(os.Stdout, m.global.pciLib(m.logger), ids)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "vendor",
				Destination: &cfg.vendor,
				Usage:       "Only list devices from this vendor (e.g., 10de); empty lists all",
				Value:       "10de",
			},
		},
	}

	return &c
}

func parseVendor(raw string) (uint32, error) {
	if raw == "" {
		return 0, nil
	}
	vendor, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid vendor %q: %w", raw, err)
	}
	return uint32(vendor), nil
}

// pciAddresses enumerates PCI devices, keeping those from vendor. A zero
// vendor keeps everything.
func pciAddresses(fs sysfs.FS, vendor uint32) ([]string, error) {
	devices, err := fs.PciDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to read pci devices: %w", err)
	}

	var ids []string
	for _, device := range devices {
		if vendor != 0 && device.Vendor != vendor {
			continue
		}
		ids = append(ids, pci.Format(
			uint(device.Location.Segment),
			uint(device.Location.Bus),
			uint(device.Location.Device),
			uint(device.Location.Function),
		))
	}
	return ids, nil
}

func (m listCommand) print(w io.Writer, pciLib pciLib, ids []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tVENDOR\tDEVICE\tDRIVER\tVFIO DRIVER")
	for _, id := range ids {
		dev, err := pciLib.Inspect(id)
		if err != nil {
			return err
		}
		variant, err := pciLib.VFIOVariant(id)
		if err != nil {
			m.logger.Debugf("No vfio variant for %s: %v", id, err)
		}
		if variant == "" {
			variant = "-"
		}
		driver := dev.Driver
		if driver == "" {
			driver = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", dev.Address, dev.Vendor, dev.Device, driver, variant)
	}
	return tw.Flush()
}
