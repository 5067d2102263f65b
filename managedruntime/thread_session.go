// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package managedruntime

import (
	"runtime"
	"syscall"

	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

/* Thread_session is the registration of one native thread with the runtime. You get one
from Register_thread, you use it for every call you make from that thread, and you call
Unregister once when the thread is done. A session is only good on the thread that made it. */
type Thread_session struct {
	m_runtime    *Runtime
	m_tid        int
	m_pinned     bool
	m_registered bool // guarded by m_runtime.m_threads_lock
}

/* Register_thread registers the calling goroutine's os thread. the goroutine is pinned to
the thread until Unregister, otherwise the scheduler would move us out from under our own tid. */
func (this *Runtime) Register_thread() (tools.Ret, *Thread_session) {
	runtime.LockOSThread()
	var ret, session = this.register(true)
	if ret != nil {
		runtime.UnlockOSThread()
		return ret, nil
	}
	return nil, session
}

/* Register_foreign_thread is for threads that go didn't make, like a C thread calling in
through cgo. those are already stuck to their thread for the length of the call, so no pinning. */
func (this *Runtime) Register_foreign_thread() (tools.Ret, *Thread_session) {
	return this.register(false)
}

func (this *Runtime) register(pinned bool) (tools.Ret, *Thread_session) {
	var tid int = unix.Gettid()

	this.m_threads_lock.Lock()
	defer this.m_threads_lock.Unlock()

	if _, found := this.m_threads[tid]; found {
		return tools.ErrorWithCode(this.m_log, int(syscall.EEXIST), "thread ", tid, " is already registered with the runtime"), nil
	}

	var s Thread_session
	s.m_runtime = this
	s.m_tid = tid
	s.m_pinned = pinned
	s.m_registered = true
	this.m_threads[tid] = &s
	this.m_log.Debug("registered thread ", tid)
	return nil, &s
}

// Session_for_current_thread returns nil if the calling thread never registered.
func (this *Runtime) Session_for_current_thread() *Thread_session {
	var tid int = unix.Gettid()
	this.m_threads_lock.Lock()
	defer this.m_threads_lock.Unlock()
	return this.m_threads[tid]
}

func (this *Runtime) Registered_thread_count() int {
	this.m_threads_lock.Lock()
	defer this.m_threads_lock.Unlock()
	return len(this.m_threads)
}

/* Check_session makes sure session can be used for a call right now from right here.
a nil session, one that was unregistered, or one being used from some other thread all fail. */
func (this *Runtime) Check_session(session *Thread_session) tools.Ret {
	if session == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "call from a thread that never registered with the runtime")
	}
	if session.m_runtime != this {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "thread session belongs to a different runtime")
	}

	this.m_threads_lock.Lock()
	var registered = session.m_registered
	this.m_threads_lock.Unlock()

	if registered == false {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "call from thread ", session.m_tid, " after it unregistered")
	}
	var tid int = unix.Gettid()
	if tid != session.m_tid {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "thread session for thread ", session.m_tid, " used from thread ", tid)
	}
	return nil
}

func (this *Thread_session) Get_tid() int {
	return this.m_tid
}

// Unregister must be called exactly once, from the thread that registered.
func (this *Thread_session) Unregister() tools.Ret {
	var r = this.m_runtime
	var tid int = unix.Gettid()
	if tid != this.m_tid {
		return tools.ErrorWithCode(r.m_log, int(syscall.EINVAL), "thread ", tid, " tried to unregister the session for thread ", this.m_tid)
	}

	r.m_threads_lock.Lock()
	if this.m_registered == false {
		r.m_threads_lock.Unlock()
		return tools.ErrorWithCode(r.m_log, int(syscall.EINVAL), "thread ", this.m_tid, " unregistered twice")
	}
	this.m_registered = false
	delete(r.m_threads, this.m_tid)
	r.m_threads_lock.Unlock()

	if this.m_pinned {
		runtime.UnlockOSThread()
	}
	r.m_log.Debug("unregistered thread ", this.m_tid)
	return nil
}
