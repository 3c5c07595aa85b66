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

package linuxutils

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// Lock takes an exclusive advisory lock on path, blocking until it is
// available. An empty path disables locking. The returned function releases
// the lock.
func Lock(log *logrus.Logger, path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	fileLock := flock.New(path)
	log.Debugf("Acquiring lock %s", path)
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			log.Warnf("Failed to release lock %s: %v", path, err)
		}
	}, nil
}
