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
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Dispatcher routes an Invocation to its handler.
type Dispatcher struct {
	log      *logrus.Logger
	registry *Registry
}

func NewDispatcher(log *logrus.Logger, registry *Registry) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
	}
}

// Dispatch runs the handler for inv, passing it a lazily read view of the
// object description in stdin. Events without a handler are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation, stdin io.Reader) error {
	h, ok := d.registry.Resolve(inv)
	if !ok {
		d.log.Debugf("No handler for %q", inv)
		return nil
	}
	d.log.Debugf("Handling %q", inv)
	return h.Handle(ctx, inv, NewDescription(stdin))
}
