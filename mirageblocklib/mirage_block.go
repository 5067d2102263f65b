// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

/* This module is the native side of the boundary. Every call goes the same way:
check the caller's thread session, take the runtime lock, look up the entry point,
call it, figure out if it threw, drop the lock. The devices themselves live on the
other side, we never see inside a handle. */

package mirageblocklib

import (
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

// Handle is what open gives you. it means nothing on this side.
type Handle = int

// every operation failure looks like this to a native caller.
const FAILURE_ERRNO unix.Errno = unix.EINVAL

type Mirage_block struct {
	m_log     *tools.Nixomosetools_logger
	m_runtime *managedruntime.Runtime
}

/* New_mirage_block is cheap, the resolved entry points live in runtime, so any number of
these over the same runtime all see the same lookups. */
func New_mirage_block(log *tools.Nixomosetools_logger, runtime *managedruntime.Runtime) *Mirage_block {
	var m Mirage_block
	m.m_log = log
	m.m_runtime = runtime
	return &m
}

func (this *Mirage_block) Get_runtime() *managedruntime.Runtime {
	return this.m_runtime
}

/* with_runtime_lock is the one way across. fn runs with the runtime lock held and the lock
is dropped on the way out no matter how we leave, including a panic out of fn. */
func (this *Mirage_block) with_runtime_lock(session *managedruntime.Thread_session, fn func() tools.Ret) tools.Ret {
	var ret = this.m_runtime.Check_session(session)
	if ret != nil {
		return ret
	}
	this.m_runtime.Acquire_runtime_system()
	defer this.m_runtime.Release_runtime_system()
	return fn()
}

/* call makes one crossing to the named entry point. any views passed in are released before
the lock is, so nothing on the other side can hang on to caller memory past the call. */
func (this *Mirage_block) call(session *managedruntime.Thread_session, name string, views managedruntime.Buffer_views,
	args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {

	var value managedruntime.Value
	var ret = this.with_runtime_lock(session, func() tools.Ret {
		defer views.Release_all()

		var fn = this.resolve(name)
		this.m_log.Debug("calling ", name, " from thread ", session.Get_tid())
		var result = this.m_runtime.Callback_exn(fn, args...)
		if result.Is_exception_result() {
			return tools.ErrorWithCodeNoLog(this.m_log, int(FAILURE_ERRNO), name, " failed: ", result.Get_exception().Get_errmsg())
		}
		value = result.Get_value()
		return nil
	})
	if ret != nil {
		return ret, nil
	}
	return nil, value
}
