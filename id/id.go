// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package id centralizes identifier generation so every aggregate in
// opentrusty-core mints IDs the same way.
package id

import "github.com/google/uuid"

// NewUUIDv7 returns a new RFC 9562 UUIDv7 string. UUIDv7 is time-ordered,
// which keeps primary-key indexes (roles, assignments, tenants, clients)
// insert-friendly compared to UUIDv4.
func NewUUIDv7() string {
	u, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system clock/rand source is broken;
		// fall back to a random UUID rather than panic in a hot path.
		return uuid.NewString()
	}
	return u.String()
}
