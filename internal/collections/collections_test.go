// Copyright 2025 EngFlow Inc. All rights reserved.
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

package collections

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetMembership(t *testing.T) {
	set := SetOf("a", "b")
	assert.True(t, set.Contains("a"))
	assert.False(t, set.Contains("c"))

	set.Add("c")
	assert.True(t, set.Contains("c"))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, set.Values())
	assert.Equal(t, []string{"a", "b", "c"}, set.SortedValues(strings.Compare))
}

func TestToSetDeduplicates(t *testing.T) {
	set := ToSet([]int{1, 2, 2, 3, 3, 3})
	assert.Len(t, set, 3)
}

func TestFindDuplicates(t *testing.T) {
	assert.Nil(t, FindDuplicates([]string{"x", "y", "z"}))
	assert.Equal(t, []string{"y"}, FindDuplicates([]string{"x", "y", "y"}))
	assert.Equal(t, []string{"a", "a"}, FindDuplicates([]string{"a", "a", "a"}))
}

func TestMapAndFilterSlice(t *testing.T) {
	mapped := MapSlice([]int{1, 2, 3}, strconv.Itoa)
	assert.Equal(t, []string{"1", "2", "3"}, mapped)

	filtered := FilterSlice([]int{1, 2, 3, 4}, func(x int) bool { return x%2 == 0 })
	assert.Equal(t, []int{2, 4}, filtered)
}
