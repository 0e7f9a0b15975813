//
// Copyright 2019-2021 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package pidfd provides pidfd_open/pidfd_send_signal support, used by
// nsenter's --target PID join to guard against the target pid being
// reused by an unrelated process between the ns lookup and the setns
// calls that follow it.
package pidfd

import "syscall"

const (
	sysPidfdSendSignal = 424
	sysPidfdOpen       = 434
)

// PidFd is a file descriptor that refers to a process for its lifetime,
// immune to the pid being recycled once the referenced process exits.
type PidFd int

// Open obtains a pidfd for pid. The flags argument is reserved by the
// kernel and must be 0.
func Open(pid int, flags uint) (PidFd, error) {
	fd, _, errno := syscall.Syscall(sysPidfdOpen, uintptr(pid), uintptr(flags), 0)
	if errno != 0 {
		return 0, errno
	}

	return PidFd(fd), nil
}

// SendSignal sends signal to the process the pidfd refers to. Sending
// signal 0 is a liveness probe: ESRCH means the process has exited.
func (fd PidFd) SendSignal(signal syscall.Signal, flags uint) error {
	_, _, errno := syscall.Syscall6(sysPidfdSendSignal, uintptr(fd), uintptr(signal), 0, uintptr(flags), 0, 0)
	if errno != 0 {
		return errno
	}

	return nil
}

// Guard holds a pidfd across a sequence of operations keyed by pid
// (such as opening /proc/<pid>/ns/* files and calling setns on them),
// so the caller can confirm afterwards that pid still names the same
// process throughout, not a reused pid from a race with process exit.
type Guard struct {
	fd PidFd
}

// OpenGuard opens a pidfd for pid to guard operations against it.
func OpenGuard(pid int) (*Guard, error) {
	fd, err := Open(pid, 0)
	if err != nil {
		return nil, err
	}
	return &Guard{fd: fd}, nil
}

// StillAlive reports whether the guarded process is still the one the
// pidfd was opened against (it has not exited, which under Linux's pid
// allocation means the pid could not yet have been reused for another
// process while this fd stays open).
func (g *Guard) StillAlive() bool {
	return g.fd.SendSignal(0, 0) == nil
}
