// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblocklib

import (
	"math"
	"unsafe"

	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

/* the native caller describes its buffers with plain struct iovecs, base pointer + length.
we don't copy any of it, each iovec turns into a view straight onto the same memory. the
caller has to keep that memory alive and where it is until the call comes back. */

// Iovecs_from_buffers describes go slices the way a native caller would.
func Iovecs_from_buffers(bufs [][]byte) []unix.Iovec {
	var iov []unix.Iovec = make([]unix.Iovec, len(bufs))
	for lp := 0; lp < len(bufs); lp++ {
		if len(bufs[lp]) > 0 {
			iov[lp].Base = &bufs[lp][0]
		}
		iov[lp].SetLen(len(bufs[lp]))
	}
	return iov
}

// marshal_iovecs makes one view per iovec, in the same order.
func (this *Mirage_block) marshal_iovecs(iov []unix.Iovec) (tools.Ret, managedruntime.Buffer_views) {
	var views managedruntime.Buffer_views = make(managedruntime.Buffer_views, 0, len(iov))
	var total uint64 = 0
	for lp := 0; lp < len(iov); lp++ {
		var length uint64 = uint64(iov[lp].Len)
		if length > math.MaxInt {
			return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "iovec ", lp, " length ", length, " is too big to pass across"), nil
		}
		total += length
		if total > math.MaxInt64 {
			return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "total iovec length is too big to pass across"), nil
		}
		var data []byte
		if length > 0 {
			if iov[lp].Base == nil {
				return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "iovec ", lp, " has a nil base and length ", length), nil
			}
			data = unsafe.Slice(iov[lp].Base, int(length))
		}
		views = append(views, managedruntime.New_buffer_view(data))
	}
	return nil, views
}

func (this *Mirage_block) marshal_offset(offset int64) tools.Ret {
	if offset < 0 {
		return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "negative offset: ", offset)
	}
	return nil
}
