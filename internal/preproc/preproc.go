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

// Package preproc resolves @use imports before the lexer runs, producing a
// single logical source buffer. It is a textual inclusion pass, not a linker:
// a `@use "path"` directive found outside of a string literal is replaced by
// the preprocessed contents of the referenced file. Every other character is
// copied verbatim, so line numbers in downstream diagnostics stay meaningful.
//
// A module-identity set keyed by resolved absolute path spans the whole run;
// a module already in the set is skipped rather than re-included, which
// guarantees termination on diamond or cyclic @use graphs.
package preproc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/EngFlow/nullc/internal/collections"
)

const (
	// MaxSourceFileSize is the cap on a single source file read off disk.
	MaxSourceFileSize = 10 << 20
	// MaxOutputSize is the cap on the accumulated preprocessed buffer.
	MaxOutputSize = 50 << 20
	// MaxImportedModules is the cap on distinct modules per compilation.
	MaxImportedModules = 64
)

var (
	ErrSourceTooLarge   = errors.New("source file exceeds the size limit")
	ErrOutputTooLarge   = errors.New("preprocessed source exceeds the size limit")
	ErrTooManyModules   = errors.New("too many imported modules")
	ErrMalformedUsePath = errors.New("malformed @use directive, expected a quoted path")
)

// Preprocessor holds the per-compilation inclusion state. The imported-module
// set is carried explicitly through the recursion; a fresh Preprocessor (or a
// Reset) starts a new compilation.
type Preprocessor struct {
	stdRoot  string
	imported collections.Set[string]
	modules  int
	output   bytes.Buffer
}

func New(stdRoot string) *Preprocessor {
	pp := &Preprocessor{stdRoot: stdRoot}
	pp.Reset()
	return pp
}

// Reset clears the imported-module set and the output buffer so the
// Preprocessor can serve another top-level compilation.
func (pp *Preprocessor) Reset() {
	pp.imported = collections.Set[string]{}
	pp.modules = 0
	pp.output.Reset()
}

// ExpandFile preprocesses the file at path and returns the fully spliced
// source buffer. The state left from a previous call is discarded.
func (pp *Preprocessor) ExpandFile(path string) ([]byte, error) {
	pp.Reset()
	if err := pp.includeFile(path, true); err != nil {
		return nil, err
	}
	return bytes.Clone(pp.output.Bytes()), nil
}

// Expand preprocesses an in-memory buffer whose relative imports resolve
// against baseDir. Used by the REPL, which has no backing file.
func (pp *Preprocessor) Expand(source []byte, baseDir string) ([]byte, error) {
	pp.Reset()
	if err := pp.splice(source, baseDir); err != nil {
		return nil, err
	}
	return bytes.Clone(pp.output.Bytes()), nil
}

func (pp *Preprocessor) includeFile(path string, topLevel bool) error {
	identity, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve module path %q: %w", path, err)
	}
	if pp.imported.Contains(identity) {
		return nil // already spliced once, skip to break the cycle
	}
	pp.imported.Add(identity)

	if !topLevel {
		pp.modules++
		if pp.modules > MaxImportedModules {
			return fmt.Errorf("%w (limit %d)", ErrTooManyModules, MaxImportedModules)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read module %q: %w", path, err)
	}
	if info.Size() > MaxSourceFileSize {
		return fmt.Errorf("%w: %q is %d bytes (limit %d)", ErrSourceTooLarge, path, info.Size(), MaxSourceFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read module %q: %w", path, err)
	}
	return pp.splice(data, filepath.Dir(path))
}

// splice copies data into the output buffer, expanding @use directives found
// outside of string literals.
func (pp *Preprocessor) splice(data []byte, baseDir string) error {
	useDirective := []byte("@use")

	i := 0
	for i < len(data) {
		switch {
		case data[i] == '"':
			end, err := skipStringLiteral(data, i)
			if err != nil {
				// Unterminated literal; copy the tail and let the lexer report it.
				end = len(data)
			}
			if err := pp.write(data[i:end]); err != nil {
				return err
			}
			i = end

		case bytes.HasPrefix(data[i:], useDirective):
			path, end, err := parseUsePath(data, i+len(useDirective))
			if err != nil {
				return err
			}
			resolved := pp.resolvePath(path, baseDir)
			if err := pp.includeFile(resolved, false); err != nil {
				return err
			}
			i = end

		default:
			if err := pp.write(data[i : i+1]); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (pp *Preprocessor) write(chunk []byte) error {
	if pp.output.Len()+len(chunk) > MaxOutputSize {
		return fmt.Errorf("%w (limit %d)", ErrOutputTooLarge, MaxOutputSize)
	}
	pp.output.Write(chunk)
	return nil
}

// resolvePath maps a @use path to a filesystem path:
//
//	std/…  resolves against the standard-library root
//	./…    resolves against the directory of the importing file
//	else   is treated as given, relative to the process cwd
func (pp *Preprocessor) resolvePath(path, baseDir string) string {
	switch {
	case strings.HasPrefix(path, "std/"):
		return filepath.Join(pp.stdRoot, strings.TrimPrefix(path, "std/"))
	case strings.HasPrefix(path, "./"):
		return filepath.Join(baseDir, strings.TrimPrefix(path, "./"))
	default:
		return path
	}
}

// skipStringLiteral returns the index just past the string literal starting
// at data[start]. A backslash escapes the following character.
func skipStringLiteral(data []byte, start int) (int, error) {
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return len(data), errors.New("unterminated string literal")
}

// parseUsePath extracts the quoted path following a @use directive, starting
// right after the directive keyword. Returns the path and the index just past
// the closing quote.
func parseUsePath(data []byte, start int) (string, int, error) {
	i := start
	for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	if i == len(data) || data[i] != '"' {
		return "", 0, ErrMalformedUsePath
	}
	end := bytes.IndexByte(data[i+1:], '"')
	if end < 0 {
		return "", 0, ErrMalformedUsePath
	}
	path := string(data[i+1 : i+1+end])
	if strings.ContainsRune(path, '\n') {
		return "", 0, ErrMalformedUsePath
	}
	return path, i + 1 + end + 1, nil
}
