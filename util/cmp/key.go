// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmp

import (
	"strings"
)

// Key is implemented by types whose identity can be written out as a string.
// Two values with the same Key output are considered the same value. The
// output should be readable by a human, as it shows up in test failures and
// debug output.
type Key interface {
	Key(*strings.Builder)
}

// GetKey returns the identity key of the object as a string.
func GetKey(object Key) string {
	var b strings.Builder
	object.Key(&b)
	return b.String()
}
