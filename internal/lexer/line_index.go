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

package lexer

import "strings"

// LineIndex maps a 1-indexed line number to the text of that line. It is
// built up-front from the full source buffer and used for rendering error
// context.
type LineIndex struct {
	lines []string
}

func NewLineIndex(sourceCode []byte) *LineIndex {
	lines := strings.Split(string(sourceCode), "\n")
	return &LineIndex{lines: lines}
}

// Line returns the text of the given 1-indexed line, without its trailing
// newline. The second return value is false when the line number is out of
// range.
func (idx *LineIndex) Line(number int) (string, bool) {
	if number < 1 || number > len(idx.lines) {
		return "", false
	}
	return idx.lines[number-1], true
}

// Count returns the number of lines in the indexed source.
func (idx *LineIndex) Count() int {
	return len(idx.lines)
}
