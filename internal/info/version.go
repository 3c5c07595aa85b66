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

package info

import "strings"

// version and gitCommit are set at link time, e.g.
// -ldflags "-X github.com/NVIDIA/vfio-hook/internal/info.version=v0.1.0"
var (
	version   = "unknown"
	gitCommit = ""
)

// GetVersionParts returns the version and commit that make up the version string.
func GetVersionParts() []string {
	parts := []string{version}
	if gitCommit != "" {
		parts = append(parts, "commit: "+gitCommit)
	}
	return parts
}

// GetVersionString returns the version string suitable for cli.App.Version.
func GetVersionString(more ...string) string {
	return strings.Join(append(GetVersionParts(), more...), "\n")
}
