// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

/* Package managedruntime hosts the block implementations that live on the far side of
the boundary. Everything in here is reached by name: implementations register closures
under a stable string, and callers look them up, take the one big runtime lock, and call
them. Nothing in here knows about block devices. */
package managedruntime

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/nixomose/nixomosegotools/tools"
)

// Value is anything that crosses into or out of the runtime.
type Value = interface{}

/* Closure is an entry point. A non-nil tools.Ret (or a panic) is the exceptional outcome,
there is no other way for a closure to say it failed. */
type Closure func(args ...Value) (tools.Ret, Value)

type Runtime struct {
	m_log *tools.Nixomosetools_logger

	/* the one lock. every crossing holds it for the whole call. it is not reentrant, a
	closure that calls back into the boundary will deadlock, same as it would anywhere else. */
	m_runtime_lock sync.Mutex

	m_named_values_lock sync.RWMutex
	m_named_values      map[string]*Closure

	/* entry points the boundary already looked up. only touched with m_runtime_lock held,
	so every boundary over this runtime shares it and nobody resolves the same name twice. */
	m_resolved map[string]*Closure

	m_threads_lock sync.Mutex
	m_threads      map[int]*Thread_session
}

func New_runtime(log *tools.Nixomosetools_logger) *Runtime {
	var r Runtime
	r.m_log = log
	r.m_named_values = make(map[string]*Closure)
	r.m_resolved = make(map[string]*Closure)
	r.m_threads = make(map[int]*Thread_session)
	return &r
}

var default_runtime *Runtime
var default_runtime_once sync.Once

/* Default_runtime is the process wide runtime. the first caller's logger is the one it
keeps, everybody after that gets the same instance. */
func Default_runtime(log *tools.Nixomosetools_logger) *Runtime {
	default_runtime_once.Do(func() {
		default_runtime = New_runtime(log)
	})
	return default_runtime
}

func (this *Runtime) Get_log() *tools.Nixomosetools_logger {
	return this.m_log
}

func (this *Runtime) Acquire_runtime_system() {
	this.m_runtime_lock.Lock()
}

func (this *Runtime) Release_runtime_system() {
	this.m_runtime_lock.Unlock()
}

// Register publishes fn under name, replacing anything already there.
func (this *Runtime) Register(name string, fn Closure) {
	this.m_named_values_lock.Lock()
	defer this.m_named_values_lock.Unlock()
	var c = fn
	this.m_named_values[name] = &c
	this.m_log.Debug("registered entry point: ", name)
}

// Named_value returns nil if nothing was registered under name.
func (this *Runtime) Named_value(name string) *Closure {
	this.m_named_values_lock.RLock()
	defer this.m_named_values_lock.RUnlock()
	return this.m_named_values[name]
}

// Resolved_value is nil if name was never remembered. caller must hold the runtime lock.
func (this *Runtime) Resolved_value(name string) *Closure {
	return this.m_resolved[name]
}

// Remember_resolved caller must hold the runtime lock.
func (this *Runtime) Remember_resolved(name string, fn *Closure) {
	this.m_resolved[name] = fn
}

type Result struct {
	m_value     Value
	m_exception tools.Ret
}

func (this Result) Is_exception_result() bool {
	return this.m_exception != nil
}

func (this Result) Get_value() Value {
	return this.m_value
}

func (this Result) Get_exception() tools.Ret {
	return this.m_exception
}

/* Callback_exn calls fn and never lets anything escape. an error return or a panic
both come back as an exception result. the caller must hold the runtime lock. */
func (this *Runtime) Callback_exn(fn *Closure, args ...Value) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{m_exception: tools.ErrorWithCode(this.m_log, int(syscall.EINVAL),
				"entry point panicked: ", fmt.Sprint(r))}
		}
	}()

	if fn == nil || *fn == nil {
		return Result{m_exception: tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "call to nil entry point")}
	}

	var ret, value = (*fn)(args...)
	if ret != nil {
		return Result{m_exception: ret}
	}
	return Result{m_value: value}
}
