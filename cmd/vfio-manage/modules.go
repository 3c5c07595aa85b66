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
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/vfio-hook/internal/vfio"
)

type modulesCommand struct {
	logger *logrus.Logger
	global *globalOptions
}

// newModulesCommand constructs a modules command with the specified logger
func newModulesCommand(logger *logrus.Logger, global *globalOptions) *cli.Command {
	c := modulesCommand{
		logger: logger,
		global: global,
	}
	return c.build()
}

// build the modules command
func (m modulesCommand) build() *cli.Command {
	c := cli.Command{
		Name:      "modules",
		Usage:     "List loaded kernel modules matching a key",
		ArgsUsage: "[KEY]",
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				key = vfio.GraphicsDriver
			}

			km := m.global.kernelModules(m.logger)
			modules, err := km.List(key)
			if err != nil {
				return err
			}
			km.Print(modules)

			if version, err := km.Version(vfio.GraphicsDriver); err == nil {
				m.logger.Infof("%s driver version %s", vfio.GraphicsDriver, version)
			}

			if !km.IsLoaded(vfio.PassthroughDriver) {
				m.logger.Warnf("Kernel module %s is not loaded", vfio.PassthroughDriver)
			}
			return nil
		},
	}

	return &c
}
