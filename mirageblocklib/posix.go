// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblocklib

import (
	"github.com/nixomose/mirageblockgo/managedruntime"
	"golang.org/x/sys/unix"
)

/* The posix flavor. This is what a native caller sees: -1 (or non zero) and an errno.
Whatever went wrong on the other side, it's always the same errno, we don't pass along why. */

// Open returns a handle >= 0, or -1 and EINVAL.
func (this *Mirage_block) Open(session *managedruntime.Thread_session, locator string, buffered bool) (Handle, unix.Errno) {
	var ret, handle = this.Open_device(session, locator, buffered)
	if ret != nil {
		return -1, FAILURE_ERRNO
	}
	return handle, 0
}

// Stat fills in out and returns 0, or -1 and EINVAL leaving out alone.
func (this *Mirage_block) Stat(session *managedruntime.Thread_session, handle Handle, out *Stat) (int, unix.Errno) {
	var ret, st = this.Stat_device(session, handle)
	if ret != nil {
		return -1, FAILURE_ERRNO
	}
	if out != nil {
		*out = st
	}
	return 0, 0
}

// Close returns 0 on success and 1 on failure. it never sets errno.
func (this *Mirage_block) Close(session *managedruntime.Thread_session, handle Handle) int {
	var ret = this.Close_device(session, handle)
	if ret != nil {
		return 1
	}
	return 0
}

func (this *Mirage_block) Preadv(session *managedruntime.Thread_session, handle Handle, iov []unix.Iovec, offset int64) (int64, unix.Errno) {
	var ret, n = this.Preadv_device(session, handle, iov, offset)
	if ret != nil {
		return -1, FAILURE_ERRNO
	}
	return n, 0
}

func (this *Mirage_block) Pwritev(session *managedruntime.Thread_session, handle Handle, iov []unix.Iovec, offset int64) (int64, unix.Errno) {
	var ret, n = this.Pwritev_device(session, handle, iov, offset)
	if ret != nil {
		return -1, FAILURE_ERRNO
	}
	return n, 0
}

// Flush returns 0, or 1 and EINVAL.
func (this *Mirage_block) Flush(session *managedruntime.Thread_session, handle Handle) (int, unix.Errno) {
	var ret = this.Flush_device(session, handle)
	if ret != nil {
		return 1, FAILURE_ERRNO
	}
	return 0, 0
}
