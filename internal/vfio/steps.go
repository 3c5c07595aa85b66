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

package vfio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type stepKind int

const (
	// stepAdvisory failures are logged and otherwise ignored.
	stepAdvisory stepKind = iota
	// stepRequired failures abort the sequence.
	stepRequired
)

// step is a kernel module operation together with its failure policy.
type step struct {
	module string
	kind   stepKind
}

func advisory(module string) step {
	return step{module: module, kind: stepAdvisory}
}

func required(module string) step {
	return step{module: module, kind: stepRequired}
}

func (s step) unload(log *logrus.Logger, modules KernelModules) error {
	return s.apply(log, "unload", modules.Unload)
}

func (s step) load(log *logrus.Logger, modules KernelModules) error {
	return s.apply(log, "load", modules.Load)
}

func (s step) apply(log *logrus.Logger, verb string, op func(string) error) error {
	err := op(s.module)
	if err == nil {
		return nil
	}
	if s.kind == stepAdvisory {
		log.Debugf("Ignoring failure to %s kernel module %s: %v", verb, s.module, err)
		return nil
	}
	return fmt.Errorf("failed to %s kernel module %s: %w", verb, s.module, err)
}

// runUnloads applies the unload steps in order, stopping at the first
// required step that fails.
func runUnloads(log *logrus.Logger, modules KernelModules, steps []step) error {
	for _, s := range steps {
		if err := s.unload(log, modules); err != nil {
			return err
		}
	}
	return nil
}
