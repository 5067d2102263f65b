// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblocklib

import (
	"fmt"
	"os"

	"github.com/nixomose/mirageblockgo/managedruntime"
	"golang.org/x/sys/unix"
)

/* abort_process is what happens when an entry point isn't there. that means the block
implementation never got linked in or never registered, and no amount of retrying will
fix that, so we go down hard. it's a var so the tests can catch it. */
var abort_process = func(diagnostic string) {
	fmt.Fprintln(os.Stderr, diagnostic)
	unix.Kill(unix.Getpid(), unix.SIGABRT)
	os.Exit(134) // in case somebody is ignoring SIGABRT
}

/* resolve returns the entry point for name, looking it up the first time and remembering it
in the runtime after that. caller must hold the runtime lock. */
func (this *Mirage_block) resolve(name string) *managedruntime.Closure {
	var fn = this.m_runtime.Resolved_value(name)
	if fn != nil {
		return fn
	}

	fn = this.m_runtime.Named_value(name)
	if fn == nil {
		this.m_log.Error("entry point ", name, " is not registered")
		abort_process("Entry point registration for " + name + " not done: are all block implementations linked?")
		return nil
	}
	this.m_runtime.Remember_resolved(name, fn)
	return fn
}
