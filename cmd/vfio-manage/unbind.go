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

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
)

type unbindCommand struct {
	logger *logrus.Logger
	global *globalOptions
}

type unbindOptions struct {
	all       bool
	deviceIDs []string
}

// newUnbindCommand constructs an unbind command with the specified logger
func newUnbindCommand(logger *logrus.Logger, global *globalOptions) *cli.Command {
	c := unbindCommand{
		logger: logger,
		global: global,
	}
	return c.build()
}

// build the unbind command
func (m unbindCommand) build() *cli.Command {
	cfg := unbindOptions{}

	c := cli.Command{
		Name:  "unbind",
		Usage: "Unbind device(s) from their current driver",
		Before: func(c *cli.Context) error {
			cfg.deviceIDs = c.StringSlice("device-id")
			return validateDeviceFlags(cfg.all, cfg.deviceIDs)
		},
		Action: func(c *cli.Context) error {
			ids := cfg.deviceIDs
			if cfg.all {
				var err error
				ids, err = gpuAddresses(m.global.nvpciLib(m.logger), true)
				if err != nil {
					return err
				}
			}

			unlock, err := linuxutils.Lock(m.logger, m.global.lockFile)
			if err != nil {
				return err
			}
			defer unlock()

			return m.unbind(m.global.pciLib(m.logger), ids)
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Destination: &cfg.all,
				Usage:       "Unbind all NVIDIA GPUs and NVSwitches",
			},
			&cli.StringSliceFlag{
				Name:    "device-id",
				Aliases: []string{"d"},
				Usage:   "Device ID to unbind (e.g., 0000:01:00.0); may be repeated",
			},
		},
	}

	return &c
}

func (m unbindCommand) unbind(pciLib pci.Interface, ids []string) error {
	for _, id := range ids {
		dev, err := pciLib.Inspect(id)
		if err != nil {
			return err
		}
		if !dev.Bound() {
			m.logger.Infof("Device %s is not bound to any driver", id)
			continue
		}

		m.logger.Infof("Unbinding device %s from %s", id, dev.Driver)
		if err := pciLib.Unbind(id); err != nil {
			return fmt.Errorf("failed to unbind device %s: %w", id, err)
		}
	}
	return nil
}
