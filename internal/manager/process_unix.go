// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package manager

import (
	"net"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setDetached puts the child in its own session, so the CLI or manager
// that spawned it can exit without sending it a SIGHUP/SIGKILL via the
// controlling terminal or process group.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// socketAlive reports whether a Unix socket at path is currently
// accepting connections.
func socketAlive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// sendSignal delivers sig to pid via the x/sys/unix raw syscall wrapper,
// used instead of os.Process.Signal so callers get the full unix.Signal
// vocabulary (e.g. SIGTERM) rather than Go's narrower os.Signal subset.
func sendSignal(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}
