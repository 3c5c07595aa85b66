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
)

// Handler handles one lifecycle event.
type Handler interface {
	Handle(ctx context.Context, inv Invocation, desc Description) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv Invocation, desc Description) error

func (f HandlerFunc) Handle(ctx context.Context, inv Invocation, desc Description) error {
	return f(ctx, inv, desc)
}

type objectKey struct {
	object    string
	operation string
}

// Registry maps events to handlers. Lookups are exact: a handler registered
// for an object and operation takes precedence over one registered for the
// operation alone.
type Registry struct {
	objects    map[objectKey]Handler
	operations map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		objects:    make(map[objectKey]Handler),
		operations: make(map[string]Handler),
	}
}

// RegisterObject registers h for operation on the named object.
func (r *Registry) RegisterObject(object string, operation string, h Handler) {
	r.objects[objectKey{object: object, operation: operation}] = h
}

// RegisterOperation registers h for operation on any object.
func (r *Registry) RegisterOperation(operation string, h Handler) {
	r.operations[operation] = h
}

// Resolve returns the handler for inv, if any.
func (r *Registry) Resolve(inv Invocation) (Handler, bool) {
	if inv.Object != "" {
		if h, ok := r.objects[objectKey{object: inv.Object, operation: inv.Operation}]; ok {
			return h, true
		}
	}
	h, ok := r.operations[inv.Operation]
	return h, ok
}
