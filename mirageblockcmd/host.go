// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package main

import (
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblockdevices"
	"github.com/nixomose/mirageblockgo/mirageblocklib"
	"github.com/nixomose/nixomosegotools/tools"
)

/* host is everything a command needs: the runtime with the block implementation
registered in it, and the boundary to call it through. */
type host struct {
	m_log      *tools.Nixomosetools_logger
	m_runtime  *managedruntime.Runtime
	m_table    *mirageblockdevices.Session_table
	m_boundary *mirageblocklib.Mirage_block
}

func new_host(log *tools.Nixomosetools_logger) *host {
	var h host
	h.m_log = log
	h.m_runtime = managedruntime.New_runtime(log)
	h.m_table = mirageblockdevices.New_session_table(log)
	mirageblockdevices.Register_entry_points(log, h.m_runtime, h.m_table)
	h.m_boundary = mirageblocklib.New_mirage_block(log, h.m_runtime)
	return &h
}

/* with_thread registers the calling goroutine's thread for the length of fn. */
func (this *host) with_thread(fn func(session *managedruntime.Thread_session) tools.Ret) tools.Ret {
	var ret, session = this.m_runtime.Register_thread()
	if ret != nil {
		return ret
	}
	defer session.Unregister()
	return fn(session)
}

/* with_device opens locator, runs fn with the handle, and closes it again. */
func (this *host) with_device(session *managedruntime.Thread_session, locator string, buffered bool,
	fn func(handle mirageblocklib.Handle) tools.Ret) tools.Ret {

	var ret, handle = this.m_boundary.Open_device(session, locator, buffered)
	if ret != nil {
		return ret
	}
	ret = fn(handle)
	var close_ret = this.m_boundary.Close_device(session, handle)
	if ret != nil {
		return ret
	}
	return close_ret
}
