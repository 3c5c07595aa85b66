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

	nvlibpci "github.com/NVIDIA/go-nvlib/pkg/nvpci"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
	"github.com/NVIDIA/vfio-hook/internal/vfio"
)

type bindCommand struct {
	logger *logrus.Logger
	global *globalOptions
}

type bindOptions struct {
	all       bool
	deviceIDs []string
}

// newBindCommand constructs a bind command with the specified logger
func newBindCommand(logger *logrus.Logger, global *globalOptions) *cli.Command {
	c := bindCommand{
		logger: logger,
		global: global,
	}
	return c.build()
}

// build the bind command
func (m bindCommand) build() *cli.Command {
	cfg := bindOptions{}

	c := cli.Command{
		Name:  "bind",
		Usage: "Bind device(s) to the vfio-pci driver",
		Before: func(c *cli.Context) error {
			cfg.deviceIDs = c.StringSlice("device-id")
			return validateDeviceFlags(cfg.all, cfg.deviceIDs)
		},
		Action: func(c *cli.Context) error {
			return m.run(&cfg)
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Destination: &cfg.all,
				Usage:       "Bind all NVIDIA GPUs to vfio-pci",
			},
			&cli.StringSliceFlag{
				Name:    "device-id",
				Aliases: []string{"d"},
				Usage:   "Device ID to bind (e.g., 0000:01:00.0); may be repeated",
			},
		},
	}

	return &c
}

func (m bindCommand) run(cfg *bindOptions) error {
	ids := cfg.deviceIDs
	if cfg.all {
		var err error
		ids, err = gpuAddresses(m.global.nvpciLib(m.logger), false)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		m.logger.Info("No devices to bind")
		return nil
	}

	unlock, err := linuxutils.Lock(m.logger, m.global.lockFile)
	if err != nil {
		return err
	}
	defer unlock()

	rebinder := vfio.NewRebinder(m.logger, m.global.pciLib(m.logger), m.global.kernelModules(m.logger))
	previous, err := rebinder.Bind(ids)
	if err != nil {
		return err
	}
	for _, dev := range previous {
		m.logger.Infof("Device %s bound to %s (was %q)", dev.Address, vfio.PassthroughDriver, dev.Driver)
	}
	return nil
}

func validateDeviceFlags(all bool, deviceIDs []string) error {
	if !all && len(deviceIDs) == 0 {
		return fmt.Errorf("either --all or --device-id must be specified")
	}

	if all && len(deviceIDs) > 0 {
		return fmt.Errorf("cannot specify both --all and --device-id")
	}

	for _, id := range deviceIDs {
		if _, err := pci.ParseAddress(id); err != nil {
			return err
		}
	}

	return nil
}

// gpuAddresses returns the addresses of all NVIDIA GPUs, and NVSwitches when
// requested.
func gpuAddresses(nvpciLib nvlibpci.Interface, withNVSwitches bool) ([]string, error) {
	devices, err := nvpciLib.GetGPUs()
	if err != nil {
		return nil, fmt.Errorf("failed to get NVIDIA GPUs: %w", err)
	}

	if withNVSwitches {
		nvswitches, err := nvpciLib.GetNVSwitches()
		if err != nil {
			return nil, fmt.Errorf("failed to get NVIDIA NVSwitches: %w", err)
		}
		devices = append(devices, nvswitches...)
	}

	var ids []string
	for _, dev := range devices {
		ids = append(ids, dev.Address)
	}
	return ids, nil
}
