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

//go:build unix

package compiler

import "syscall"

const (
	// MaxCPUSeconds bounds runaway compilation; exceeding it aborts the
	// process with a diagnostic from the kernel.
	MaxCPUSeconds = 120
	// MaxVirtualMemory bounds the address space; exhaustion aborts
	// immediately.
	MaxVirtualMemory = 4 << 30
)

// ApplyResourceLimits installs the process-wide CPU-time and virtual-memory
// limits. Failures are ignored: the limits are a safety net, not a
// requirement.
func ApplyResourceLimits() {
	syscall.Setrlimit(syscall.RLIMIT_CPU, &syscall.Rlimit{Cur: MaxCPUSeconds, Max: MaxCPUSeconds})
	syscall.Setrlimit(syscall.RLIMIT_AS, &syscall.Rlimit{Cur: MaxVirtualMemory, Max: MaxVirtualMemory})
}
